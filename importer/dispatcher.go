package importer

import (
	"context"
	"fmt"
	"log"

	"github.com/camden-git/photovaultbackend/gdrive"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/queue"
	"github.com/camden-git/photovaultbackend/repository"
)

// Dispatcher persists one file record per discovered file and enqueues the
// corresponding messages, moving the job from discovery into processing.
type Dispatcher struct {
	jobs      repository.ImportJobRepositoryInterface
	files     repository.ImportJobFileRepositoryInterface
	queue     queue.Queue
	batchSize int
}

// NewDispatcher creates a dispatcher batching queue sends at batchSize
func NewDispatcher(jobs repository.ImportJobRepositoryInterface, files repository.ImportJobFileRepositoryInterface, q queue.Queue, batchSize int) *Dispatcher {
	return &Dispatcher{jobs: jobs, files: files, queue: q, batchSize: batchSize}
}

// Dispatch runs the four dispatch steps in order: insert file rows, record
// the total and QUEUED status, enqueue one message per file, mark the job
// PROCESSING. A crash between steps is recovered by reconciliation of the
// rows written so far, never by re-dispatching.
//
// If enqueueing fails partway through, the file rows inserted in step one
// stay QUEUED with no message behind them; the reconciler reconciles counts
// only and does not re-deliver, so those files stall until the job is
// cancelled. Known gap carried over from the reference behavior.
func (d *Dispatcher) Dispatch(ctx context.Context, job *models.ImportJob, descriptors []gdrive.FileDescriptor) error {
	fileRecords := make([]models.ImportJobFile, len(descriptors))
	for i, desc := range descriptors {
		fileRecords[i] = models.ImportJobFile{
			JobID:       job.ID,
			DriveFileID: desc.ID,
			FileName:    desc.Name,
			MimeType:    desc.MimeType,
			FileSize:    desc.Size,
		}
	}

	if err := d.files.CreateInBatches(fileRecords, 100); err != nil {
		return fmt.Errorf("failed to create file records for job %s: %w", job.ID, err)
	}

	if err := d.jobs.MarkQueued(job.ID, len(fileRecords)); err != nil {
		return fmt.Errorf("failed to mark job %s queued: %w", job.ID, err)
	}

	bodies := make([][]byte, len(fileRecords))
	for i, record := range fileRecords {
		msg := Message{
			JobID:       job.ID,
			FileID:      record.ID,
			DriveFileID: record.DriveFileID,
			FileName:    record.FileName,
			MimeType:    record.MimeType,
			FileSize:    record.FileSize,
			UserID:      job.UserID,
			RoomID:      job.RoomID,
			CapturedAt:  job.CapturedAt,
		}
		body, err := msg.Encode()
		if err != nil {
			return err
		}
		bodies[i] = body
	}

	if err := d.queue.SendBatch(ctx, bodies); err != nil {
		return fmt.Errorf("failed to enqueue messages for job %s: %w", job.ID, err)
	}

	if err := d.jobs.MarkProcessing(job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", job.ID, err)
	}

	log.Printf("importer: job %s dispatched %d files", job.ID, len(fileRecords))
	return nil
}
