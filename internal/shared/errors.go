package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a row lock or serialization clash; the caller may retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrPermissionDenied indicates the acting user lacks the required capability.
	ErrPermissionDenied = errors.New("permission denied")
)

// Known reports whether err wraps one of the shared sentinels, so callers
// can skip error level logging for expected outcomes.
func Known(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrIdempotencyConflict)
}
