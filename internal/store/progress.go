package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// ProgressStore defines the interface for progress ledger persistence.
// Rows are keyed by (user ID, concept ID), created on first interaction,
// and never deleted.
type ProgressStore interface {
	// Create saves a new progress record.
	// Returns ErrDuplicate if a record for (user, concept) already exists.
	Create(ctx context.Context, rec *domain.ProgressRecord) error

	// Get retrieves a progress record by (user ID, concept ID).
	// Returns ErrProgressNotFound if no record exists.
	// NOTE: This method does NOT provide any row locking, so it should not
	// be used when you plan to update the row and need concurrency protection.
	Get(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error)

	// GetForUpdate retrieves a progress record with a row-level lock using
	// SELECT FOR UPDATE. Use this within a transaction when applying an
	// attempt, so the mastery max-merge and additive time accumulation are
	// serialized per row.
	// Returns ErrProgressNotFound if no record exists.
	GetForUpdate(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error)

	// Update modifies an existing progress record.
	// Returns ErrConcurrentModification if the row vanished between the
	// lock acquisition and the write.
	Update(ctx context.Context, rec *domain.ProgressRecord) error

	// ListByUser retrieves all progress records for a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ProgressRecord, error)

	// ListCompletions retrieves the completion timestamps of the user's
	// finished concepts since the given time, for velocity computation.
	ListCompletions(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)

	// ListCohortUserIDs retrieves every user with at least one progress
	// record. This population is the comparison baseline for percentiles.
	ListCohortUserIDs(ctx context.Context) ([]uuid.UUID, error)

	// WithTx returns a new ProgressStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ProgressStore
}
