package repository

import (
	"time"

	"github.com/camden-git/photovaultbackend/models"
)

// StatusCounts holds a per-status breakdown of a job's file records, as
// recomputed by the reconciler.
type StatusCounts struct {
	Completed int
	Failed    int
	Queued    int
	InFlight  int
}

// Processed returns the number of files that reached a terminal status
func (c StatusCounts) Processed() int {
	return c.Completed + c.Failed
}

// ImportJobRepositoryInterface defines the methods for import job data operations
type ImportJobRepositoryInterface interface {
	Create(job *models.ImportJob) error
	GetByID(id string) (*models.ImportJob, error)
	ListByUser(userID uint, limit int) ([]models.ImportJob, error)

	// discovery-phase transitions, all guarded on the current status
	MarkQueued(jobID string, totalFiles int) error
	MarkProcessing(jobID string) error
	MarkCompletedEmpty(jobID string) error
	MarkDiscoveryFailed(jobID string, errMsg string) error
	MarkCancelled(jobID string) error

	// IncrementProgress atomically bumps processed plus success or failed in
	// a single conditional UPDATE, promoting the job to COMPLETED when the
	// new processed count reaches the total (terminal statuses excluded)
	IncrementProgress(jobID string, success bool) error

	// ApplyReconciledCounters overwrites drifted counters with authoritative
	// values; promote moves a QUEUED/PROCESSING job to COMPLETED
	ApplyReconciledCounters(jobID string, counts StatusCounts, promote bool) error
}

// ImportJobFileRepositoryInterface defines the methods for per-file pipeline records
type ImportJobFileRepositoryInterface interface {
	CreateInBatches(files []models.ImportJobFile, batchSize int) error
	GetByID(id string) (*models.ImportJobFile, error)
	ListRecentByJob(jobID string, limit int) ([]models.ImportJobFile, error)

	// Claim takes ownership of a non-terminal file at the start of a
	// processing attempt, moving it to DOWNLOADING; completed and failed
	// rows refuse the claim
	Claim(fileID string) error

	// Advance moves a file one step forward within a processing attempt; it
	// fails when the stored status is not the expected predecessor
	Advance(fileID, from, to string) error

	// MarkCompleted finalizes a file with its produced photo id
	MarkCompleted(fileID, photoID string) error

	// RecordFailure applies the retry policy and returns the resulting state
	RecordFailure(fileID string, maxRetries int, errMsg string) (*models.ImportJobFile, error)

	// CountByStatus recomputes the authoritative per-status counts for a job
	CountByStatus(jobID string) (StatusCounts, error)

	// PhotoIDsByJob lists the photo ids produced by a job's files
	PhotoIDsByJob(jobID string) ([]string, error)
}

// PhotoRepositoryInterface defines the methods for photo data operations
type PhotoRepositoryInterface interface {
	CreateWithEmbeddings(photo *models.Photo, embeddings []models.FaceEmbedding) error
	GetByID(id string) (*models.Photo, error)
	DeleteByIDs(ids []string) (int64, error)
	ListEmbeddings() ([]models.FaceEmbedding, error)
	GetByIDs(ids []string) ([]models.Photo, error)
}

// UserRepositoryInterface defines the methods for user data operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// RoomRepositoryInterface defines the methods for room data operations
type RoomRepositoryInterface interface {
	Create(room *models.Room) error
	GetByID(id string) (*models.Room, error)
	ListAll() ([]models.Room, error)
}

// DriveAuthRepositoryInterface defines the methods for stored provider credentials
type DriveAuthRepositoryInterface interface {
	GetByUserID(userID uint) (*models.DriveAuth, error)
	Upsert(auth *models.DriveAuth) error
	UpdateAccessToken(userID uint, encryptedToken []byte, expiresAt time.Time) error
}
