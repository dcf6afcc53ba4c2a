package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// PathStore defines the interface for learning path persistence.
type PathStore interface {
	// Create saves a new path.
	Create(ctx context.Context, path *domain.Path) error

	// GetByID retrieves a path by its unique ID.
	// Returns ErrPathNotFound if the path does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Path, error)

	// AddConcept links a concept into the path at the given sequence order.
	// Returns ErrSequenceOrderExists if the sequence order is taken within
	// the path, and ErrInvalidEntity if the path or concept does not exist.
	AddConcept(ctx context.Context, pc *domain.PathConcept) error

	// RemoveConcept unlinks a concept from the path.
	// Returns ErrNotFound if the membership does not exist.
	RemoveConcept(ctx context.Context, pathID, conceptID uuid.UUID) error

	// ListConcepts retrieves the path's membership rows ordered by
	// sequence order.
	ListConcepts(ctx context.Context, pathID uuid.UUID) ([]domain.PathConcept, error)

	// List retrieves all paths ordered by name.
	List(ctx context.Context) ([]*domain.Path, error)

	// WithTx returns a new PathStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PathStore
}
