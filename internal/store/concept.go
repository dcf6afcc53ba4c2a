package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// ConceptStore defines the interface for concept data persistence.
type ConceptStore interface {
	// Create saves a new concept.
	// It handles domain validation internally.
	// Returns ErrConceptCodeExists if a concept with the same code exists.
	Create(ctx context.Context, concept *domain.Concept) error

	// GetByID retrieves a concept by its unique ID.
	// Returns ErrConceptNotFound if the concept does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Concept, error)

	// GetByCode retrieves a concept by its unique code.
	// Returns ErrConceptNotFound if the concept does not exist.
	GetByCode(ctx context.Context, code string) (*domain.Concept, error)

	// Update modifies an existing concept's mutable fields.
	// Returns ErrConceptNotFound if the concept does not exist.
	Update(ctx context.Context, concept *domain.Concept) error

	// Delete removes a concept.
	// Returns ErrDeleteFailed if the concept is still referenced by
	// prerequisite edges, path memberships, or progress records.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves all concepts ordered by code.
	List(ctx context.Context) ([]*domain.Concept, error)

	// WithTx returns a new ConceptStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ConceptStore
}
