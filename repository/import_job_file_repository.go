package repository

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ImportJobFileRepository handles database operations for ImportJobFile entities
type ImportJobFileRepository struct {
	DB *gorm.DB
}

// NewImportJobFileRepository creates a new instance of ImportJobFileRepository
func NewImportJobFileRepository(db *gorm.DB) *ImportJobFileRepository {
	return &ImportJobFileRepository{DB: db}
}

// CreateInBatches bulk-inserts file records, assigning ids where missing
func (r *ImportJobFileRepository) CreateInBatches(files []models.ImportJobFile, batchSize int) error {
	for i := range files {
		if files[i].ID == "" {
			files[i].ID = uuid.NewString()
		}
		if files[i].Status == "" {
			files[i].Status = database.FileStatusQueued
		}
	}
	if err := r.DB.CreateInBatches(files, batchSize).Error; err != nil {
		return fmt.Errorf("failed to bulk-insert job files: %w", err)
	}
	return nil
}

// GetByID retrieves a file record by its identifier
func (r *ImportJobFileRepository) GetByID(id string) (*models.ImportJobFile, error) {
	var file models.ImportJobFile
	err := r.DB.Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job file %s: %w", id, err)
	}
	return &file, nil
}

// ListRecentByJob returns the newest file records of a job, capped at limit
func (r *ImportJobFileRepository) ListRecentByJob(jobID string, limit int) ([]models.ImportJobFile, error) {
	var files []models.ImportJobFile
	err := r.DB.Where("job_id = ?", jobID).
		Order("created_at DESC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files for job %s: %w", jobID, err)
	}
	return files, nil
}

// Claim takes ownership of a file at the start of a processing attempt,
// moving it to DOWNLOADING. Besides QUEUED it accepts any in-flight status: a
// redelivery after a consumer crash finds the file wherever the dead owner
// left it, and the visibility window guarantees that owner is gone. Completed
// and failed rows are immutable and refuse the claim with ErrStaleStatus.
func (r *ImportJobFileRepository) Claim(fileID string) error {
	res := r.DB.Model(&models.ImportJobFile{}).
		Where("id = ? AND status NOT IN ?", fileID,
			[]string{database.FileStatusCompleted, database.FileStatusFailed}).
		Update("status", database.FileStatusDownloading)
	if res.Error != nil {
		return fmt.Errorf("failed to claim file %s: %w", fileID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// Advance moves a file one step forward within a processing attempt. The
// update is guarded on the expected predecessor status; a duplicate delivery
// working on the same file loses the race and gets ErrStaleStatus.
func (r *ImportJobFileRepository) Advance(fileID, from, to string) error {
	if !database.FileCanAdvance(from, to) {
		return fmt.Errorf("illegal file status transition %s -> %s", from, to)
	}
	res := r.DB.Model(&models.ImportJobFile{}).
		Where("id = ? AND status = ?", fileID, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to advance file %s to %s: %w", fileID, to, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// MarkCompleted finalizes a file with its produced photo id. Completed and
// failed rows are immutable, so the guard excludes terminal statuses.
func (r *ImportJobFileRepository) MarkCompleted(fileID, photoID string) error {
	res := r.DB.Model(&models.ImportJobFile{}).
		Where("id = ? AND status = ?", fileID, database.FileStatusProcessingEmbeddings).
		Updates(map[string]interface{}{
			"status":   database.FileStatusCompleted,
			"photo_id": photoID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete file %s: %w", fileID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// RecordFailure applies the retry policy after a failed attempt: the file is
// reset to QUEUED while retries remain and marked FAILED once they are
// exhausted. The guard on the stored retry count keeps a duplicate delivery
// from double-counting the same failure.
func (r *ImportJobFileRepository) RecordFailure(fileID string, maxRetries int, errMsg string) (*models.ImportJobFile, error) {
	file, err := r.GetByID(fileID)
	if err != nil {
		return nil, err
	}
	if database.FileStatusIsTerminal(file.Status) {
		return nil, ErrStaleStatus
	}

	next := database.NextFileStateOnFailure(file.RetryCount, maxRetries)

	res := r.DB.Model(&models.ImportJobFile{}).
		Where("id = ? AND retry_count = ? AND status NOT IN ?",
			fileID, file.RetryCount,
			[]string{database.FileStatusCompleted, database.FileStatusFailed}).
		Updates(map[string]interface{}{
			"status":        next.Status,
			"retry_count":   next.RetryCount,
			"error_message": errMsg,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record failure for file %s: %w", fileID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleStatus
	}

	file.Status = next.Status
	file.RetryCount = next.RetryCount
	file.ErrorMessage = &errMsg
	return file, nil
}

// CountByStatus recomputes the authoritative per-status counts for a job
// from its file records
func (r *ImportJobFileRepository) CountByStatus(jobID string) (StatusCounts, error) {
	queryBuilder := psql.Select("status", "COUNT(*) AS n").
		From("import_job_files").
		Where(sq.Eq{"job_id": jobID}).
		GroupBy("status")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return StatusCounts{}, fmt.Errorf("failed to build SQL query for CountByStatus: %w", err)
	}

	rows, err := r.DB.Raw(sqlStr, args...).Rows()
	if err != nil {
		return StatusCounts{}, fmt.Errorf("failed to count files by status for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, fmt.Errorf("failed to scan status count row: %w", err)
		}
		switch status {
		case database.FileStatusCompleted:
			counts.Completed = n
		case database.FileStatusFailed:
			counts.Failed = n
		case database.FileStatusQueued:
			counts.Queued = n
		default:
			counts.InFlight += n
		}
	}
	if err := rows.Err(); err != nil {
		return StatusCounts{}, fmt.Errorf("failed reading status count rows: %w", err)
	}
	return counts, nil
}

// PhotoIDsByJob lists the photo ids produced by a job's files
func (r *ImportJobFileRepository) PhotoIDsByJob(jobID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&models.ImportJobFile{}).
		Where("job_id = ? AND photo_id IS NOT NULL", jobID).
		Pluck("photo_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list photo ids for job %s: %w", jobID, err)
	}
	return ids, nil
}
