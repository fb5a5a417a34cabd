package repository

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStaleStatus is returned by guarded updates when the stored status
	// no longer matches the expected one (another worker or the canceller
	// got there first)
	ErrStaleStatus = errors.New("record status changed concurrently")
)
