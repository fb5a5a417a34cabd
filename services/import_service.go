package services

import (
	"errors"
	"time"

	"github.com/camden-git/photovaultbackend/importer"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
)

var (
	// ErrForbidden is returned when the user's role does not allow imports
	ErrForbidden = errors.New("user is not allowed to manage imports")

	// ErrRoomNotFound is returned when an import targets an unknown room
	ErrRoomNotFound = errors.New("room not found")
)

const (
	jobListLimit    = 50
	recentFileLimit = 100
)

// CreateImportInput carries the request parameters for a new import job
type CreateImportInput struct {
	RoomID            string
	FolderID          string
	FolderName        string
	CapturedAt        *time.Time
	IncludeSubfolders bool
}

// ImportService exposes the import job lifecycle to the HTTP layer: create
// with detached discovery, reconcile-on-read status, listing and cancel.
type ImportService struct {
	jobs       repository.ImportJobRepositoryInterface
	files      repository.ImportJobFileRepositoryInterface
	rooms      repository.RoomRepositoryInterface
	discoverer *importer.Discoverer
	reconciler *importer.Reconciler
	canceller  *importer.Canceller
}

// NewImportService wires an import service from its collaborators
func NewImportService(
	jobs repository.ImportJobRepositoryInterface,
	files repository.ImportJobFileRepositoryInterface,
	rooms repository.RoomRepositoryInterface,
	discoverer *importer.Discoverer,
	reconciler *importer.Reconciler,
	canceller *importer.Canceller,
) *ImportService {
	return &ImportService{
		jobs:       jobs,
		files:      files,
		rooms:      rooms,
		discoverer: discoverer,
		reconciler: reconciler,
		canceller:  canceller,
	}
}

// CreateImport validates the request, persists the job in DISCOVERING state
// and launches discovery in the background. The returned job is what the
// caller polls against; discovery outcomes land on the job record.
func (s *ImportService) CreateImport(user *models.User, in CreateImportInput) (*models.ImportJob, error) {
	if !user.CanImport() {
		return nil, ErrForbidden
	}
	if _, err := s.rooms.GetByID(in.RoomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	job := &models.ImportJob{
		UserID:     user.ID,
		RoomID:     in.RoomID,
		FolderID:   in.FolderID,
		FolderName: in.FolderName,
		CapturedAt: in.CapturedAt,
	}
	if err := s.jobs.Create(job); err != nil {
		return nil, err
	}

	s.discoverer.Start(job, in.IncludeSubfolders)
	return job, nil
}

// GetJob returns a job with healed counters plus its most recent file
// records. Jobs owned by other users are reported as not found.
func (s *ImportService) GetJob(jobID string, userID uint) (*models.ImportJob, []models.ImportJobFile, error) {
	job, err := s.reconciler.Reconcile(jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, importer.ErrJobNotFound
		}
		return nil, nil, err
	}
	if job.UserID != userID {
		return nil, nil, importer.ErrJobNotFound
	}

	files, err := s.files.ListRecentByJob(jobID, recentFileLimit)
	if err != nil {
		return nil, nil, err
	}
	return job, files, nil
}

// ListJobs returns the user's jobs, newest first. Listed jobs carry their
// stored counters; only the single-job read pays the reconcile cost.
func (s *ImportService) ListJobs(userID uint) ([]models.ImportJob, error) {
	return s.jobs.ListByUser(userID, jobListLimit)
}

// ListRooms returns every room, for the import form's room picker
func (s *ImportService) ListRooms() ([]models.Room, error) {
	return s.rooms.ListAll()
}

// CancelImport cancels the job and deletes its photos, returning the number
// of photos removed
func (s *ImportService) CancelImport(user *models.User, jobID string) (int64, error) {
	if !user.CanImport() {
		return 0, ErrForbidden
	}
	deleted, err := s.canceller.Cancel(jobID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, importer.ErrJobNotFound
		}
		return 0, err
	}
	return deleted, nil
}
