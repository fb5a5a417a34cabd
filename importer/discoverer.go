package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/camden-git/photovaultbackend/gdrive"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
	"github.com/camden-git/photovaultbackend/utils"
)

// Discoverer walks the external folder tree of a newly created job, filters
// it down to image files and hands the result to the dispatcher. Discovery
// runs detached from the request that created the job: the caller gets the
// job id immediately and polls for status.
type Discoverer struct {
	drive      gdrive.Provider
	jobs       repository.ImportJobRepositoryInterface
	dispatcher *Dispatcher
	delay      time.Duration // mandatory pause between provider requests
}

// NewDiscoverer creates a discoverer with the given inter-request delay
func NewDiscoverer(drive gdrive.Provider, jobs repository.ImportJobRepositoryInterface, dispatcher *Dispatcher, delay time.Duration) *Discoverer {
	return &Discoverer{drive: drive, jobs: jobs, dispatcher: dispatcher, delay: delay}
}

// Start launches discovery in the background with its own error boundary:
// any failure is written back to the job record instead of being lost.
func (d *Discoverer) Start(job *models.ImportJob, includeSubfolders bool) {
	go func() {
		if err := d.Run(context.Background(), job, includeSubfolders); err != nil {
			log.Printf("importer: discovery for job %s failed: %v", job.ID, err)
		}
	}()
}

// Run performs discovery and dispatch for a job. An unrecoverable error
// aborts the whole job: it transitions to FAILED with the error captured and
// nothing is queued.
func (d *Discoverer) Run(ctx context.Context, job *models.ImportJob, includeSubfolders bool) error {
	log.Printf("importer: job %s discovering folder %s", job.ID, job.FolderID)

	files, err := d.discover(ctx, job.UserID, job.FolderID, includeSubfolders)
	if err != nil {
		if markErr := d.jobs.MarkDiscoveryFailed(job.ID, err.Error()); markErr != nil {
			log.Printf("importer: failed to record discovery failure for job %s: %v", job.ID, markErr)
		}
		return fmt.Errorf("discovery failed for job %s: %w", job.ID, err)
	}

	log.Printf("importer: job %s discovered %d image files", job.ID, len(files))

	if len(files) == 0 {
		// empty-result terminal path, not an error
		if err := d.jobs.MarkCompletedEmpty(job.ID); err != nil {
			return fmt.Errorf("failed to complete empty job %s: %w", job.ID, err)
		}
		return nil
	}

	if err := d.dispatcher.Dispatch(ctx, job, files); err != nil {
		if markErr := d.jobs.MarkDiscoveryFailed(job.ID, err.Error()); markErr != nil {
			log.Printf("importer: failed to record dispatch failure for job %s: %v", job.ID, markErr)
		}
		return fmt.Errorf("dispatch failed for job %s: %w", job.ID, err)
	}
	return nil
}

// discover walks the folder tree from the root using a work-list. Each
// folder is visited exactly once, so the resulting sequence is de-duplicated
// by construction. Provider pagination is followed page by page with the
// configured delay between requests.
func (d *Discoverer) discover(ctx context.Context, userID uint, rootFolderID string, includeSubfolders bool) ([]gdrive.FileDescriptor, error) {
	var files []gdrive.FileDescriptor
	worklist := []string{rootFolderID}

	for len(worklist) > 0 {
		folderID := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		pageToken := ""
		for {
			page, next, err := d.drive.ListImages(ctx, userID, folderID, pageToken)
			if err != nil {
				return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
			}
			for _, f := range page {
				if utils.IsImageMime(f.MimeType) {
					files = append(files, f)
				}
			}
			if err := d.pause(ctx); err != nil {
				return nil, err
			}
			if next == "" {
				break
			}
			pageToken = next
		}

		if includeSubfolders {
			subfolders, err := d.drive.ListSubfolders(ctx, userID, folderID)
			if err != nil {
				return nil, fmt.Errorf("failed to list subfolders of %s: %w", folderID, err)
			}
			for _, sub := range subfolders {
				worklist = append(worklist, sub.ID)
			}
			if err := d.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

// pause enforces the provider rate-limit delay, honoring cancellation
func (d *Discoverer) pause(ctx context.Context) error {
	if d.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(d.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
