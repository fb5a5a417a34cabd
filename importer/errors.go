package importer

import "errors"

var (
	// ErrJobNotFound is returned when a job does not exist or does not
	// belong to the requesting user
	ErrJobNotFound = errors.New("import job not found")

	// ErrAlreadyCancelled is returned on a second cancel attempt; double
	// cancel is an error, not a no-op
	ErrAlreadyCancelled = errors.New("import job already cancelled")

	// ErrJobFinished is returned when cancelling a job that already
	// completed or failed
	ErrJobFinished = errors.New("import job already finished")
)
