package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// EdgeStore defines the interface for prerequisite edge persistence.
//
// The store enforces storage-level constraints only (uniqueness, foreign
// keys). Cycle prevention is the job of the graph service, which performs
// the reachability check under its structural mutation lock before calling
// Create.
type EdgeStore interface {
	// Create saves a new prerequisite edge.
	// Returns ErrEdgeExists if the edge already exists, and
	// ErrInvalidEntity if either concept does not exist.
	Create(ctx context.Context, edge *domain.PrerequisiteEdge) error

	// Delete removes the edge (conceptID, prerequisiteID).
	// Returns ErrEdgeNotFound if the edge does not exist.
	Delete(ctx context.Context, conceptID, prerequisiteID uuid.UUID) error

	// ListFor retrieves the direct prerequisite edges of a concept,
	// ordered by prerequisite ID for stable output.
	ListFor(ctx context.Context, conceptID uuid.UUID) ([]domain.PrerequisiteEdge, error)

	// ListAll retrieves every prerequisite edge, used to (re)build the
	// in-memory adjacency index.
	ListAll(ctx context.Context) ([]domain.PrerequisiteEdge, error)

	// WithTx returns a new EdgeStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) EdgeStore
}
