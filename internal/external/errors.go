package external

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPipeline is returned when a pipeline does not consist of
	// exactly two commands separated by a single pipe marker.
	ErrMalformedPipeline = errors.New("malformed pipeline: expected one command on each side of '|'")

	errCommandNotFound = errors.New("Command not found")
)

// SpawnError is returned when the shell cannot create a child process or a
// pipe at all. The shell cannot continue without being able to create
// children, so callers treat it as fatal.
type SpawnError struct {
	Op  string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: process creation failed: %v", e.Op, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
