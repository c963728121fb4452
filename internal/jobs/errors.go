package jobs

import "errors"

var (
	// ErrOutOfMemory is returned by Insert when the Table has reached its
	// capacity. The caller owns the just-started process and must kill it.
	ErrOutOfMemory = errors.New("Could not allocate sufficient memory for process")

	// ErrNoSuchJob is returned when a display index does not match any job in
	// the current listing.
	ErrNoSuchJob = errors.New("Invalid process number")
)
