package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrConceptNotFound, ErrPathNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a concept with the same code).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrSelfReference is returned when a concept is declared as its own
	// prerequisite. Rejected before any mutation is persisted.
	ErrSelfReference = errors.New("self-referencing prerequisite")

	// ErrCycle is returned when inserting a prerequisite edge would close a
	// directed cycle in the required-edge subgraph. The graph is left
	// unchanged.
	ErrCycle = errors.New("prerequisite cycle")

	// ErrConcurrentModification is returned when a progress row changed (or
	// disappeared) between the row lock acquisition and the write, which
	// would otherwise lose an update.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed is returned when a delete operation fails, for example
	// because the entity is referenced by other entities.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrConceptNotFound indicates that the requested concept does not exist in the store.
	ErrConceptNotFound = fmt.Errorf("%w: concept", ErrNotFound)

	// ErrPathNotFound indicates that the requested path does not exist in the store.
	ErrPathNotFound = fmt.Errorf("%w: path", ErrNotFound)

	// ErrEdgeNotFound indicates that the requested prerequisite edge does not exist in the store.
	ErrEdgeNotFound = fmt.Errorf("%w: prerequisite edge", ErrNotFound)

	// ErrProgressNotFound indicates that the requested progress record does not exist in the store.
	ErrProgressNotFound = fmt.Errorf("%w: progress record", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrConceptCodeExists indicates that a concept with the given code already exists.
	ErrConceptCodeExists = fmt.Errorf("%w: concept code", ErrDuplicate)

	// ErrEdgeExists indicates that the prerequisite edge already exists.
	ErrEdgeExists = fmt.Errorf("%w: prerequisite edge", ErrDuplicate)

	// ErrSequenceOrderExists indicates that the sequence order is already taken
	// within the path.
	ErrSequenceOrderExists = fmt.Errorf("%w: sequence order", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// EdgeError carries the offending edge alongside the rejection so callers
// can report which relationship was refused instead of silently dropping it.
type EdgeError struct {
	ConceptID      string
	PrerequisiteID string
	Err            error
}

// Error implements the error interface for EdgeError.
func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge (%s requires %s): %v", e.ConceptID, e.PrerequisiteID, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *EdgeError) Unwrap() error {
	return e.Err
}

// NewEdgeError creates an EdgeError wrapping the given rejection.
func NewEdgeError(conceptID, prerequisiteID string, err error) *EdgeError {
	return &EdgeError{
		ConceptID:      conceptID,
		PrerequisiteID: prerequisiteID,
		Err:            err,
	}
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "concept", "progress record")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
