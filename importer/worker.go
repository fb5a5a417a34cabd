package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/embeddings"
	"github.com/camden-git/photovaultbackend/gdrive"
	"github.com/camden-git/photovaultbackend/media"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
	"github.com/camden-git/photovaultbackend/utils"
)

// Outcome is the result of one processing attempt.
//
// Abandoned is the distinguished third outcome for cancellation races and
// duplicate deliveries: it is neither success nor failure, contributes to no
// job counter, and tells the consumer to drop the message.
type Outcome struct {
	Success   bool
	Retry     bool
	Abandoned bool
	PhotoID   string
}

// Processor drives a single queued file through
// download -> upload-with-transform -> score -> persist. Instances hold no
// mutable state and are safe to share across concurrent consumers; all
// coordination happens through guarded row updates.
type Processor struct {
	jobs      repository.ImportJobRepositoryInterface
	files     repository.ImportJobFileRepositoryInterface
	photos    repository.PhotoRepositoryInterface
	users     repository.UserRepositoryInterface
	drive     gdrive.Provider
	store     media.ObjectStore
	watermark *media.Watermarker
	scorer    embeddings.Scorer

	signedURLTTL time.Duration
	maxRetries   int
}

// NewProcessor wires a processor from its collaborators
func NewProcessor(
	jobs repository.ImportJobRepositoryInterface,
	files repository.ImportJobFileRepositoryInterface,
	photos repository.PhotoRepositoryInterface,
	users repository.UserRepositoryInterface,
	drive gdrive.Provider,
	store media.ObjectStore,
	watermark *media.Watermarker,
	scorer embeddings.Scorer,
	signedURLTTL time.Duration,
	maxRetries int,
) *Processor {
	return &Processor{
		jobs:         jobs,
		files:        files,
		photos:       photos,
		users:        users,
		drive:        drive,
		store:        store,
		watermark:    watermark,
		scorer:       scorer,
		signedURLTTL: signedURLTTL,
		maxRetries:   maxRetries,
	}
}

// Process handles one delivery of a file message. The same message may be
// delivered more than once: a redelivery of a finished file abandons, while a
// redelivery after a consumer crash re-claims the file from whatever
// in-flight status the dead owner left it in and runs the attempt over.
func (p *Processor) Process(ctx context.Context, msg Message) Outcome {
	if err := p.files.Claim(msg.FileID); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) || errors.Is(err, repository.ErrNotFound) {
			// already completed or failed by an earlier delivery
			log.Printf("importer: file %s already finished, dropping delivery", msg.FileID)
			return Outcome{Abandoned: true}
		}
		return p.fail(ctx, msg, "", err)
	}

	data, err := p.drive.Download(ctx, msg.UserID, msg.DriveFileID)
	if err != nil {
		return p.fail(ctx, msg, "", fmt.Errorf("download failed: %w", err))
	}

	if err := p.files.Advance(msg.FileID, database.FileStatusDownloading, database.FileStatusUploading); err != nil {
		return p.fail(ctx, msg, "", err)
	}

	photographer := "unknown"
	if user, err := p.users.GetByID(msg.UserID); err == nil {
		photographer = user.Email
	}

	// the random id keeps two concurrent deliveries of the same file from
	// ever colliding on one key; the cost is a possible second artifact for
	// one logical file after redelivery
	key := fmt.Sprintf("%s/%s-%s",
		utils.SanitizePhotographerName(photographer),
		uuid.NewString(),
		utils.SanitizeFilename(msg.FileName))

	uploadBytes, err := p.watermark.Apply(data)
	if err != nil {
		// a failed transform never fails the import; store the original
		log.Printf("importer: watermark failed for file %s, storing original: %v", msg.FileID, err)
		uploadBytes = data
	}

	storageURL, err := p.store.Put(key, uploadBytes, msg.MimeType)
	if err != nil {
		return p.fail(ctx, msg, "", fmt.Errorf("upload failed: %w", err))
	}

	// cancellation checkpoint: re-read the job from durable storage right
	// before any Photo is persisted. Past this point the file will complete
	// even if the job is cancelled underneath it.
	job, err := p.jobs.GetByID(msg.JobID)
	if err != nil {
		return p.fail(ctx, msg, key, err)
	}
	if job.Status == database.JobStatusCancelled {
		// the uploaded artifact is intentionally left in place; see the
		// canceller's storage policy
		log.Printf("importer: job %s cancelled, abandoning file %s", msg.JobID, msg.FileID)
		return Outcome{Abandoned: true}
	}

	if err := p.files.Advance(msg.FileID, database.FileStatusUploading, database.FileStatusProcessingEmbeddings); err != nil {
		return p.fail(ctx, msg, key, err)
	}

	readURL, err := p.store.SignedURL(key, p.signedURLTTL)
	if err != nil {
		return p.fail(ctx, msg, key, err)
	}

	faces, err := p.scorer.ScoreURL(ctx, readURL)
	if err != nil {
		return p.fail(ctx, msg, key, fmt.Errorf("face scoring failed: %w", err))
	}

	photo, faceRows := p.buildPhoto(msg, storageURL, photographer, data, faces)
	if err := p.photos.CreateWithEmbeddings(photo, faceRows); err != nil {
		return p.fail(ctx, msg, key, fmt.Errorf("failed to persist photo: %w", err))
	}

	if err := p.files.MarkCompleted(msg.FileID, photo.ID); err != nil {
		// lost a completion race to a duplicate delivery; roll back our copy
		log.Printf("importer: file %s completed concurrently, removing duplicate photo %s", msg.FileID, photo.ID)
		if _, delErr := p.photos.DeleteByIDs([]string{photo.ID}); delErr != nil {
			log.Printf("importer: failed to remove duplicate photo %s: %v", photo.ID, delErr)
		}
		p.cleanupArtifact(key)
		return Outcome{Abandoned: true}
	}

	if err := p.jobs.IncrementProgress(msg.JobID, true); err != nil {
		log.Printf("importer: failed to bump success counter for job %s: %v (reconciler will correct)", msg.JobID, err)
	}

	return Outcome{Success: true, PhotoID: photo.ID}
}

// buildPhoto assembles the photo row and its face embedding rows
func (p *Processor) buildPhoto(msg Message, storageURL, photographer string, original []byte, faces []embeddings.Face) (*models.Photo, []models.FaceEmbedding) {
	capturedAt := msg.CapturedAt
	if capturedAt == nil {
		capturedAt = media.TakenAt(original)
	}

	metadata, _ := json.Marshal(map[string]string{
		"imported_from":      "drive",
		"original_file_name": msg.FileName,
	})

	photo := &models.Photo{
		StorageURL:   storageURL,
		Photographer: photographer,
		UploadedByID: msg.UserID,
		RoomID:       msg.RoomID,
		Metadata:     string(metadata),
		CapturedAt:   capturedAt,
	}

	faceRows := make([]models.FaceEmbedding, 0, len(faces))
	for _, face := range faces {
		bbox, _ := json.Marshal(face.BBox)
		row := models.FaceEmbedding{
			FaceIndex:  face.FaceID,
			BBox:       string(bbox),
			Confidence: face.Confidence,
		}
		row.SetEmbedding(face.Embedding)
		faceRows = append(faceRows, row)
	}
	return photo, faceRows
}

// fail cleans up any uploaded artifact, applies the retry policy to the file
// record and bumps the job's failure counters when the file is out of
// retries. Cleanup failures are logged, never escalated: they must not stop
// the retry from being scheduled.
func (p *Processor) fail(ctx context.Context, msg Message, uploadedKey string, cause error) Outcome {
	if uploadedKey != "" {
		p.cleanupArtifact(uploadedKey)
	}

	if ctx.Err() != nil {
		// the pool is shutting down, not a problem with the file; leave the
		// attempt unrecorded so the redelivery does not burn a retry
		log.Printf("importer: attempt for file %s interrupted by shutdown, leaving for redelivery", msg.FileID)
		return Outcome{Retry: true}
	}

	log.Printf("importer: processing file %s (%s) failed: %v", msg.FileID, msg.FileName, cause)

	file, err := p.files.RecordFailure(msg.FileID, p.maxRetries, cause.Error())
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) || errors.Is(err, repository.ErrNotFound) {
			return Outcome{Abandoned: true}
		}
		log.Printf("importer: failed to record failure for file %s: %v", msg.FileID, err)
		// without a recorded failure the safest move is redelivery
		return Outcome{Retry: true}
	}

	if file.Status == database.FileStatusFailed {
		if err := p.jobs.IncrementProgress(msg.JobID, false); err != nil {
			log.Printf("importer: failed to bump failure counter for job %s: %v (reconciler will correct)", msg.JobID, err)
		}
		return Outcome{}
	}
	return Outcome{Retry: true}
}

func (p *Processor) cleanupArtifact(key string) {
	if err := p.store.Delete(key); err != nil {
		log.Printf("importer: failed to clean up artifact %s: %v", key, err)
	}
}
