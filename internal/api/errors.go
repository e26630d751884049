package api

import (
	"fmt"
	"net/http"

	"github.com/stackit/stackit/internal/engine"
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// FromError maps an engine taxonomy error onto an HTTP status. Internal and
// transient details are not exposed to clients.
func FromError(err error) *Error {
	switch engine.Kind(err) {
	case engine.ErrInvalidInput:
		return NewError(http.StatusBadRequest, err.Error())
	case engine.ErrUnauthenticated:
		return NewError(http.StatusUnauthorized, err.Error())
	case engine.ErrForbidden:
		return NewError(http.StatusForbidden, err.Error())
	case engine.ErrNotFound:
		return NewError(http.StatusNotFound, err.Error())
	case engine.ErrConflict:
		return NewError(http.StatusConflict, err.Error())
	case engine.ErrTransient:
		return NewError(http.StatusServiceUnavailable, "service temporarily unavailable, please retry")
	default:
		return NewError(http.StatusInternalServerError, "internal server error")
	}
}
