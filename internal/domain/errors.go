package domain

import (
	"errors"
	"net/http"
)

// HTTPError is implemented by errors that carry their own HTTP status code.
// Handlers map anything else to 500.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a project, task or other resource was not found.
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input. Raised before any store call.
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure.
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates the caller is not allowed to perform the
	// operation, e.g. editing another user's comment.
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors for use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
