package engine

import "errors"

// Error taxonomy. Callers match with errors.Is; detail is attached by wrapping.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	// ErrTransient marks failures that may succeed on retry: serialization
	// conflicts, deadlocks, lost connections, timeouts.
	ErrTransient = errors.New("transient failure")
	ErrInternal  = errors.New("internal error")
)

var taxonomy = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidInput,
	ErrConflict,
	ErrTransient,
	ErrInternal,
}

// Kind returns the taxonomy sentinel err belongs to. Errors outside the
// taxonomy are reported as ErrInternal.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// Classified reports whether err already carries a taxonomy sentinel.
func Classified(err error) bool {
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
