package api

import (
	"errors"
	"net/http"

	"github.com/hutchutchutch/learntrac/internal/service"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrConceptNotFound),
		errors.Is(err, service.ErrPathNotFound),
		errors.Is(err, service.ErrEdgeNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrCycleDetected),
		errors.Is(err, service.ErrDuplicateConceptCode),
		errors.Is(err, service.ErrDuplicateEdge),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, store.ErrSelfReference):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrConceptNotFound):
		return "Concept not found"
	case errors.Is(err, service.ErrPathNotFound):
		return "Learning path not found"
	case errors.Is(err, service.ErrEdgeNotFound):
		return "Prerequisite not found"
	case errors.Is(err, service.ErrCycleDetected):
		return "The prerequisite would create a dependency cycle"
	case errors.Is(err, service.ErrDuplicateConceptCode):
		return "A concept with this code already exists"
	case errors.Is(err, service.ErrDuplicateEdge):
		return "This prerequisite already exists"
	case errors.Is(err, service.ErrValidation):
		// Validation messages are written for users and safe to return.
		return err.Error()
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"
	default:
		return "An unexpected error occurred"
	}
}
