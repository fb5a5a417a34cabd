package database

import "fmt"

// Import job statuses. COMPLETED, FAILED and CANCELLED are terminal.
const (
	JobStatusDiscovering = "DISCOVERING"
	JobStatusQueued      = "QUEUED"
	JobStatusProcessing  = "PROCESSING"
	JobStatusCompleted   = "COMPLETED"
	JobStatusFailed      = "FAILED"
	JobStatusCancelled   = "CANCELLED"
)

// Import job file statuses. A file never leaves COMPLETED or FAILED.
const (
	FileStatusQueued               = "QUEUED"
	FileStatusDownloading          = "DOWNLOADING"
	FileStatusUploading            = "UPLOADING"
	FileStatusProcessingEmbeddings = "PROCESSING_EMBEDDINGS"
	FileStatusCompleted            = "COMPLETED"
	FileStatusFailed               = "FAILED"
)

var jobTransitions = map[string][]string{
	JobStatusDiscovering: {JobStatusQueued, JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusQueued:      {JobStatusProcessing, JobStatusFailed, JobStatusCancelled},
	JobStatusProcessing:  {JobStatusCompleted, JobStatusCancelled},
}

// JobStatusIsTerminal reports whether no further transitions may leave the status
func JobStatusIsTerminal(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobCanTransition validates a job status transition
func JobCanTransition(from, to string) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// FileStatusIsTerminal reports whether a file record has reached its final state
func FileStatusIsTerminal(status string) bool {
	return status == FileStatusCompleted || status == FileStatusFailed
}

// fileAttemptOrder is the strict in-attempt progression of a file
var fileAttemptOrder = map[string]string{
	FileStatusQueued:               FileStatusDownloading,
	FileStatusDownloading:          FileStatusUploading,
	FileStatusUploading:            FileStatusProcessingEmbeddings,
	FileStatusProcessingEmbeddings: FileStatusCompleted,
}

// FileCanAdvance validates the forward transition of a file within one
// processing attempt
func FileCanAdvance(from, to string) bool {
	return fileAttemptOrder[from] == to
}

// FileFailureOutcome is the computed next state of a file after a failed
// processing attempt
type FileFailureOutcome struct {
	Status     string
	RetryCount int
	Final      bool
}

// NextFileStateOnFailure applies the retry policy: the file goes back to
// QUEUED while retries remain and to FAILED once they are exhausted. The
// retry count only ever increases.
func NextFileStateOnFailure(retryCount, maxRetries int) FileFailureOutcome {
	next := retryCount + 1
	if next >= maxRetries {
		return FileFailureOutcome{Status: FileStatusFailed, RetryCount: next, Final: true}
	}
	return FileFailureOutcome{Status: FileStatusQueued, RetryCount: next, Final: false}
}

// ValidateJobTransition returns a descriptive error for an illegal transition
func ValidateJobTransition(from, to string) error {
	if !JobCanTransition(from, to) {
		return fmt.Errorf("illegal job status transition %s -> %s", from, to)
	}
	return nil
}
