package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/models"
)

// ImportJobRepository handles database operations for ImportJob entities
type ImportJobRepository struct {
	DB *gorm.DB
}

// NewImportJobRepository creates a new instance of ImportJobRepository
func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{DB: db}
}

// Create inserts a new job, assigning an id when none is set
func (r *ImportJobRepository) Create(job *models.ImportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = database.JobStatusDiscovering
	}
	if err := r.DB.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its identifier
func (r *ImportJobRepository) GetByID(id string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.DB.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get import job %s: %w", id, err)
	}
	return &job, nil
}

// ListByUser returns the user's jobs, newest first
func (r *ImportJobRepository) ListByUser(userID uint, limit int) ([]models.ImportJob, error) {
	var jobs []models.ImportJob
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs for user %d: %w", userID, err)
	}
	return jobs, nil
}

// transition performs a status-guarded update and maps a zero-row result to
// ErrStaleStatus so callers can observe lost races
func (r *ImportJobRepository) transition(jobID string, fromStatuses []string, updates map[string]interface{}) error {
	res := r.DB.Model(&models.ImportJob{}).
		Where("id = ? AND status IN ?", jobID, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update import job %s: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// MarkQueued records the discovery result and moves the job to QUEUED
func (r *ImportJobRepository) MarkQueued(jobID string, totalFiles int) error {
	return r.transition(jobID, []string{database.JobStatusDiscovering}, map[string]interface{}{
		"status":      database.JobStatusQueued,
		"total_files": totalFiles,
	})
}

// MarkProcessing moves a QUEUED job to PROCESSING once its messages are enqueued
func (r *ImportJobRepository) MarkProcessing(jobID string) error {
	return r.transition(jobID, []string{database.JobStatusQueued}, map[string]interface{}{
		"status": database.JobStatusProcessing,
	})
}

// MarkCompletedEmpty terminates a job whose discovery found no image files.
// This is the explicit empty-result path, not an error.
func (r *ImportJobRepository) MarkCompletedEmpty(jobID string) error {
	return r.transition(jobID, []string{database.JobStatusDiscovering}, map[string]interface{}{
		"status":      database.JobStatusCompleted,
		"total_files": 0,
	})
}

// MarkDiscoveryFailed aborts a job that could not be discovered or
// dispatched, recording the error on the job row. The QUEUED guard covers
// enqueue failures, which happen after the file total is recorded.
func (r *ImportJobRepository) MarkDiscoveryFailed(jobID string, errMsg string) error {
	return r.transition(jobID, []string{database.JobStatusDiscovering, database.JobStatusQueued}, map[string]interface{}{
		"status":        database.JobStatusFailed,
		"error_message": errMsg,
	})
}

// MarkCancelled moves a non-terminal job to CANCELLED
func (r *ImportJobRepository) MarkCancelled(jobID string) error {
	return r.transition(jobID, []string{
		database.JobStatusDiscovering,
		database.JobStatusQueued,
		database.JobStatusProcessing,
	}, map[string]interface{}{
		"status": database.JobStatusCancelled,
	})
}

// IncrementProgress bumps the job counters in one conditional UPDATE. SQLite
// evaluates the SET expressions against the pre-update row, so the CASE sees
// the same processed count the increment does; there is no read-then-write
// window for concurrent workers to race on.
func (r *ImportJobRepository) IncrementProgress(jobID string, success bool) error {
	outcomeColumn := "failed_files"
	if success {
		outcomeColumn = "success_files"
	}

	sql := fmt.Sprintf(`
UPDATE import_jobs SET
  processed_files = processed_files + 1,
  %s = %s + 1,
  status = CASE
    WHEN processed_files + 1 >= total_files AND status IN (?, ?) THEN ?
    ELSE status
  END,
  updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, outcomeColumn, outcomeColumn)

	res := r.DB.Exec(sql,
		database.JobStatusQueued, database.JobStatusProcessing, database.JobStatusCompleted,
		jobID)
	if res.Error != nil {
		return fmt.Errorf("failed to increment progress for job %s: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyReconciledCounters overwrites the stored counters with values derived
// from the file records. Terminal CANCELLED/FAILED jobs are never touched.
func (r *ImportJobRepository) ApplyReconciledCounters(jobID string, counts StatusCounts, promote bool) error {
	updates := map[string]interface{}{
		"processed_files": counts.Processed(),
		"success_files":   counts.Completed,
		"failed_files":    counts.Failed,
	}
	if promote {
		updates["status"] = database.JobStatusCompleted
	}

	res := r.DB.Model(&models.ImportJob{}).
		Where("id = ? AND status NOT IN ?", jobID, []string{database.JobStatusCancelled, database.JobStatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to reconcile counters for job %s: %w", jobID, res.Error)
	}
	return nil
}
