// Package apperr defines the error taxonomy shared by the domain services.
// Handlers translate these into HTTP status codes; anything outside the
// taxonomy is treated as an internal error and its detail stays server-side.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized means no identity could be resolved for the caller.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden means the resolved identity lacks permission for the
// requested operation. It deliberately carries no further detail.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports invalid input. Field names the offending input
// when known so the caller can correct it.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Validation builds a ValidationError for a named field.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// ConflictError reports a state conflict, such as admitting an alias that
// already has an active admission.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// Conflict builds a ConflictError.
func Conflict(msg string) error {
	return &ConflictError{Msg: msg}
}

// NotFoundError reports that a referenced resource does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// NotFound builds a NotFoundError for the named resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// HTTPStatus maps an error to its HTTP status code. Errors outside the
// taxonomy map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case IsValidation(err):
		return http.StatusBadRequest
	case IsConflict(err):
		return http.StatusConflict
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// Message returns the error text safe to surface to the caller. Internal
// errors collapse to a generic message.
func Message(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
