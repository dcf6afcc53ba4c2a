package service

import (
	"errors"
	"fmt"
)

// Common sentinel errors shared across services.
var (
	// ErrConceptNotFound indicates that the concept does not exist
	ErrConceptNotFound = errors.New("concept not found")

	// ErrPathNotFound indicates that the learning path does not exist
	ErrPathNotFound = errors.New("learning path not found")

	// ErrEdgeNotFound indicates that the prerequisite edge does not exist
	ErrEdgeNotFound = errors.New("prerequisite edge not found")

	// ErrCycleDetected indicates that a requested edge would create a
	// dependency cycle in the concept graph
	ErrCycleDetected = errors.New("prerequisite edge would create a cycle")

	// ErrDuplicateConceptCode indicates that a concept with the same code
	// already exists
	ErrDuplicateConceptCode = errors.New("concept code already exists")

	// ErrDuplicateEdge indicates that the prerequisite edge already exists
	ErrDuplicateEdge = errors.New("prerequisite edge already exists")

	// ErrValidation indicates invalid input to a service operation
	ErrValidation = errors.New("validation failed")
)

// ServiceError wraps errors from a service operation with context.
type ServiceError struct {
	// Service is the service where the error occurred (e.g., "graph_service")
	Service string
	// Operation is the operation that failed (e.g., "add_prerequisite")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError wraps err with operation context. Known sentinel errors
// pass through unchanged so callers can match them with errors.Is.
func newServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrConceptNotFound,
		ErrPathNotFound,
		ErrEdgeNotFound,
		ErrCycleDetected,
		ErrDuplicateConceptCode,
		ErrDuplicateEdge,
		ErrValidation,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
