package export

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrExportActive is returned when an export is initiated while another
	// session is still running. The original session is unaffected.
	ErrExportActive = errors.New("an export is already in progress")
	// ErrCancelled marks a user-triggered abort. It is a distinct terminal
	// outcome, not a failure.
	ErrCancelled = errors.New("export cancelled")
	// ErrNothingToExport is returned when the clamped rank range is empty
	// (including count = 0 estimates).
	ErrNothingToExport = errors.New("nothing to export")
)

// EstimationError wraps a failed or timed-out estimate call. It blocks
// progression to confirmation; only the estimate step is retried.
type EstimationError struct {
	Err error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("estimate failed: %v", e.Err)
}

func (e *EstimationError) Unwrap() error { return e.Err }

// NetworkError wraps a streaming transfer that failed mid-flight: a network
// error, a non-2xx status, or a stream that ended short of its declared size.
type NetworkError struct {
	Status int // HTTP status when known, 0 otherwise
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transfer failed (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transfer failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SerializationError wraps a client-side processor failure.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ValidationError reports a config or rank-range problem detected before any
// transfer starts.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
