package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrWatchNotEnabled is returned when Watch is called in file mode
	// with watching disabled in configuration.
	ErrWatchNotEnabled = errors.New("policy watching is not enabled in configuration")

	// ErrAlreadyWatching is returned when Watch is called while a watch
	// loop is already running.
	ErrAlreadyWatching = errors.New("watch already started")
)

// SourceError indicates that a bundle source could not be constructed
// from configuration.
type SourceError struct {
	// Mode is the configured source mode.
	Mode string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to create %q bundle source: %v", e.Mode, e.Cause)
	}
	return fmt.Sprintf("unknown bundle source mode %q", e.Mode)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *SourceError) Unwrap() error {
	return e.Cause
}
