package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hutchutchutch/learntrac/internal/service"
	"github.com/hutchutchutch/learntrac/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError, // Default to 500 for nil error
		},
		{
			name:           "concept not found",
			err:            service.ErrConceptNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "wrapped not found error",
			err:            fmt.Errorf("failed to load: %w", service.ErrPathNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "edge not found",
			err:            service.ErrEdgeNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "store not found",
			err:            store.ErrProgressNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "cycle detected",
			err:            fmt.Errorf("%w: a requires b", service.ErrCycleDetected),
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "duplicate concept code",
			err:            service.ErrDuplicateConceptCode,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "duplicate edge",
			err:            service.ErrDuplicateEdge,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "validation error",
			err:            fmt.Errorf("%w: difficulty out of range", service.ErrValidation),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid entity",
			err:            store.ErrInvalidEntity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "self reference",
			err:            store.ErrSelfReference,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown error",
			err:            errors.New("unknown error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := MapErrorToStatusCode(tt.err)
			assert.Equal(t, tt.expectedStatus, status)
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedMessage string
	}{
		{
			name:            "nil error",
			err:             nil,
			expectedMessage: "An unexpected error occurred",
		},
		{
			name:            "concept not found",
			err:             service.ErrConceptNotFound,
			expectedMessage: "Concept not found",
		},
		{
			name:            "cycle detected",
			err:             fmt.Errorf("%w: a requires b", service.ErrCycleDetected),
			expectedMessage: "The prerequisite would create a dependency cycle",
		},
		{
			name:            "validation messages pass through",
			err:             fmt.Errorf("%w: difficulty must be between 0 and 1", service.ErrValidation),
			expectedMessage: "validation failed: difficulty must be between 0 and 1",
		},
		{
			name:            "internal details are hidden",
			err:             errors.New("pq: connection refused to db.internal:5432"),
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMessage, GetSafeErrorMessage(tt.err))
		})
	}
}
