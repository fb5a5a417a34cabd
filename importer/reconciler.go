package importer

import (
	"log"

	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
)

// Reconciler recomputes a job's counters from its file rows and heals any
// drift before the job is shown to a caller. The per-file counter bumps are
// best-effort; the file rows are the source of truth.
type Reconciler struct {
	jobs  repository.ImportJobRepositoryInterface
	files repository.ImportJobFileRepositoryInterface
}

// NewReconciler creates a reconciler over the given repositories
func NewReconciler(jobs repository.ImportJobRepositoryInterface, files repository.ImportJobFileRepositoryInterface) *Reconciler {
	return &Reconciler{jobs: jobs, files: files}
}

// Reconcile loads a job, corrects its counters against the authoritative
// per-file counts, and promotes it to COMPLETED when every file has reached a
// terminal state. Terminal jobs are returned untouched. The returned job
// reflects the healed values.
func (r *Reconciler) Reconcile(jobID string) (*models.ImportJob, error) {
	job, err := r.jobs.GetByID(jobID)
	if err != nil {
		return nil, err
	}

	// a job with no file rows yet (still discovering, cancelled early, or
	// completed empty) has nothing to recount
	if database.JobStatusIsTerminal(job.Status) || job.Status == database.JobStatusDiscovering {
		return job, nil
	}

	counts, err := r.files.CountByStatus(jobID)
	if err != nil {
		return nil, err
	}

	promote := counts.Processed() >= job.TotalFiles &&
		(job.Status == database.JobStatusQueued || job.Status == database.JobStatusProcessing)

	drifted := counts.Processed() != job.ProcessedFiles ||
		counts.Completed != job.SuccessFiles ||
		counts.Failed != job.FailedFiles

	if !drifted && !promote {
		return job, nil
	}

	if err := r.jobs.ApplyReconciledCounters(jobID, counts, promote); err != nil {
		return nil, err
	}

	log.Printf("importer: reconciled job %s: processed %d -> %d, success %d -> %d, failed %d -> %d, promoted=%t",
		jobID, job.ProcessedFiles, counts.Processed(), job.SuccessFiles, counts.Completed,
		job.FailedFiles, counts.Failed, promote)

	job.ProcessedFiles = counts.Processed()
	job.SuccessFiles = counts.Completed
	job.FailedFiles = counts.Failed
	if promote {
		job.Status = database.JobStatusCompleted
	}
	return job, nil
}
