package apperrors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic or fatal stream error.
	ExitErrorTimeout  = 2   // Indicates at least one worker timed out (--fail-on-timeout).
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// StreamNotFoundError reports that the byte source could not be resolved to a
// readable stream. It is fatal and aborts the run before any worker starts.
type StreamNotFoundError struct {
	// Path is the location that was requested.
	Path string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a message naming the missing stream.
func (e StreamNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to open the data stream %q: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("failed to open the data stream %q", e.Path)
}

// Unwrap returns the underlying cause.
func (e StreamNotFoundError) Unwrap() error { return e.Cause }

// EmptyStreamError reports a stream whose total length is zero. It is fatal
// and aborts the run before any worker starts.
type EmptyStreamError struct {
	Path string
}

// Error returns a message naming the empty stream.
func (e EmptyStreamError) Error() string {
	return fmt.Sprintf("the data stream %q is empty", e.Path)
}

// NoWorkAssignedError is recorded when a worker claims a range starting at the
// end of the stream. It never aborts a run.
type NoWorkAssignedError struct {
	WorkerID int
	Offset   int64
}

// Error returns a message naming the starved worker.
func (e NoWorkAssignedError) Error() string {
	return fmt.Sprintf("no work has been assigned to worker %d (offset %d)", e.WorkerID, e.Offset)
}

// WorkerTimeoutError describes a worker that did not finish within its
// allotted wait and was terminated.
type WorkerTimeoutError struct {
	WorkerID int
	Limit    time.Duration
}

// Error returns a formatted message describing the timeout.
func (e WorkerTimeoutError) Error() string {
	return fmt.Sprintf("worker %d timed out after %s", e.WorkerID, e.Limit)
}

// DegenerateAverageError is returned when the per-byte average cannot be
// computed because no bytes were scanned by completed workers.
type DegenerateAverageError struct {
	// CompletedWorkers is the number of outcomes that contributed to the sums.
	CompletedWorkers int
	// TotalBytes is the denominator that was found to be zero.
	TotalBytes int64
}

// Error returns a message describing the undefined average.
func (e DegenerateAverageError) Error() string {
	return fmt.Sprintf("average time per byte is undefined: %d completed workers scanned %d bytes",
		e.CompletedWorkers, e.TotalBytes)
}

// StreamError wraps an I/O failure encountered by a worker while opening,
// seeking or reading its range.
type StreamError struct {
	WorkerID int
	// Op is the failing operation ("open", "seek" or "read").
	Op    string
	Cause error
}

// Error returns the operation and its cause.
func (e StreamError) Error() string {
	return fmt.Sprintf("worker %d: stream %s: %v", e.WorkerID, e.Op, e.Cause)
}

// Unwrap returns the original wrapped error.
func (e StreamError) Unwrap() error { return e.Cause }

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsFatalStreamError reports whether err aborts a run before workers are
// spawned (StreamNotFound or EmptyStream).
func IsFatalStreamError(err error) bool {
	var notFound StreamNotFoundError
	var empty EmptyStreamError
	return errors.As(err, &notFound) || errors.As(err, &empty)
}

// ExitCodeFor maps an error returned by a run to a process exit code.
func ExitCodeFor(err error) int {
	var cfgErr ConfigError
	var valErr ValidationError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitErrorConfig
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	default:
		return ExitErrorGeneric
	}
}
