package importer

import (
	"errors"
	"log"

	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/repository"
)

// Canceller stops an import job and removes the photos it already produced.
// Cancellation is a database-level operation: in-flight files observe it at
// their next checkpoint, and files past that checkpoint still complete, so a
// small tail of photos may outlive the cancel. Stored artifacts are never
// deleted here; an offline sweep can reclaim orphans.
type Canceller struct {
	jobs   repository.ImportJobRepositoryInterface
	files  repository.ImportJobFileRepositoryInterface
	photos repository.PhotoRepositoryInterface
}

// NewCanceller creates a canceller over the given repositories
func NewCanceller(jobs repository.ImportJobRepositoryInterface, files repository.ImportJobFileRepositoryInterface, photos repository.PhotoRepositoryInterface) *Canceller {
	return &Canceller{jobs: jobs, files: files, photos: photos}
}

// Cancel marks a job CANCELLED and bulk-deletes its imported photos,
// returning the number of photos removed. userID must own the job; a job
// owned by someone else is reported as not found rather than forbidden.
func (c *Canceller) Cancel(jobID string, userID uint) (int64, error) {
	job, err := c.jobs.GetByID(jobID)
	if err != nil {
		return 0, err
	}
	if job.UserID != userID {
		return 0, ErrJobNotFound
	}
	if job.Status == database.JobStatusCancelled {
		return 0, ErrAlreadyCancelled
	}
	if database.JobStatusIsTerminal(job.Status) {
		return 0, ErrJobFinished
	}

	if err := c.jobs.MarkCancelled(jobID); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// someone else finished or cancelled the job between our read
			// and the guarded update
			return 0, ErrAlreadyCancelled
		}
		return 0, err
	}

	photoIDs, err := c.files.PhotoIDsByJob(jobID)
	if err != nil {
		return 0, err
	}
	deleted, err := c.photos.DeleteByIDs(photoIDs)
	if err != nil {
		return 0, err
	}

	log.Printf("importer: cancelled job %s, deleted %d photos", jobID, deleted)
	return deleted, nil
}
