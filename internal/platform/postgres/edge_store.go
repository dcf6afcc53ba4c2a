package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/platform/logger"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// PostgresEdgeStore implements the store.EdgeStore interface
// using a PostgreSQL database as the storage backend.
//
// The store does not perform cycle checks itself; the graph service runs
// the reachability check under its structural mutation lock and only then
// calls Create, inside a transaction.
type PostgresEdgeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEdgeStore creates a new PostgreSQL implementation of the EdgeStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresEdgeStore(db store.DBTX, logger *slog.Logger) *PostgresEdgeStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEdgeStore{
		db:     db,
		logger: logger.With(slog.String("component", "edge_store")),
	}
}

// Ensure PostgresEdgeStore implements store.EdgeStore interface
var _ store.EdgeStore = (*PostgresEdgeStore)(nil)

// WithTx implements store.EdgeStore.WithTx
func (s *PostgresEdgeStore) WithTx(tx *sql.Tx) store.EdgeStore {
	return NewPostgresEdgeStore(tx, s.logger)
}

// Create implements store.EdgeStore.Create
// Returns store.ErrEdgeExists if the edge already exists, and
// store.ErrInvalidEntity if either endpoint concept does not exist.
func (s *PostgresEdgeStore) Create(ctx context.Context, edge *domain.PrerequisiteEdge) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := edge.Validate(); err != nil {
		log.Warn("edge validation failed during create",
			slog.String("error", err.Error()),
			slog.String("concept_id", edge.ConceptID.String()),
			slog.String("prerequisite_id", edge.PrerequisiteID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO prerequisite_edges (concept_id, prerequisite_id, requirement_type, min_mastery, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		edge.ConceptID,
		edge.PrerequisiteID,
		edge.RequirementType,
		edge.MinMastery,
		edge.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return store.NewEdgeError(
				edge.ConceptID.String(),
				edge.PrerequisiteID.String(),
				store.ErrEdgeExists,
			)
		}
		if IsForeignKeyViolation(err) {
			log.Warn("edge references unknown concept",
				slog.String("concept_id", edge.ConceptID.String()),
				slog.String("prerequisite_id", edge.PrerequisiteID.String()))
			return store.NewEdgeError(
				edge.ConceptID.String(),
				edge.PrerequisiteID.String(),
				fmt.Errorf("%w: unknown concept", store.ErrInvalidEntity),
			)
		}

		log.Error("failed to create prerequisite edge",
			slog.String("error", err.Error()),
			slog.String("concept_id", edge.ConceptID.String()),
			slog.String("prerequisite_id", edge.PrerequisiteID.String()))
		return MapError(err)
	}

	log.Info("prerequisite edge created",
		slog.String("concept_id", edge.ConceptID.String()),
		slog.String("prerequisite_id", edge.PrerequisiteID.String()),
		slog.String("requirement_type", string(edge.RequirementType)))
	return nil
}

// Delete implements store.EdgeStore.Delete
// Returns store.ErrEdgeNotFound if the edge does not exist.
// Removing an edge can never introduce a cycle, so no validation is needed.
func (s *PostgresEdgeStore) Delete(ctx context.Context, conceptID, prerequisiteID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM prerequisite_edges
		WHERE concept_id = $1 AND prerequisite_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, conceptID, prerequisiteID)
	if err != nil {
		log.Error("failed to delete prerequisite edge",
			slog.String("error", err.Error()),
			slog.String("concept_id", conceptID.String()),
			slog.String("prerequisite_id", prerequisiteID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "prerequisite edge"); err != nil {
		return store.NewEdgeError(conceptID.String(), prerequisiteID.String(), store.ErrEdgeNotFound)
	}

	log.Info("prerequisite edge deleted",
		slog.String("concept_id", conceptID.String()),
		slog.String("prerequisite_id", prerequisiteID.String()))
	return nil
}

// ListFor implements store.EdgeStore.ListFor
// Returns the direct prerequisite edges of a concept.
func (s *PostgresEdgeStore) ListFor(ctx context.Context, conceptID uuid.UUID) ([]domain.PrerequisiteEdge, error) {
	query := `
		SELECT concept_id, prerequisite_id, requirement_type, min_mastery, created_at
		FROM prerequisite_edges
		WHERE concept_id = $1
		ORDER BY prerequisite_id
	`
	return s.queryEdges(ctx, query, conceptID)
}

// ListAll implements store.EdgeStore.ListAll
// Returns every prerequisite edge, used to (re)build the adjacency index.
func (s *PostgresEdgeStore) ListAll(ctx context.Context) ([]domain.PrerequisiteEdge, error) {
	query := `
		SELECT concept_id, prerequisite_id, requirement_type, min_mastery, created_at
		FROM prerequisite_edges
		ORDER BY concept_id, prerequisite_id
	`
	return s.queryEdges(ctx, query)
}

func (s *PostgresEdgeStore) queryEdges(ctx context.Context, query string, args ...any) ([]domain.PrerequisiteEdge, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query prerequisite edges", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	edges := []domain.PrerequisiteEdge{}
	for rows.Next() {
		var edge domain.PrerequisiteEdge
		var requirementType string

		err := rows.Scan(
			&edge.ConceptID,
			&edge.PrerequisiteID,
			&requirementType,
			&edge.MinMastery,
			&edge.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan edge row", slog.String("error", err.Error()))
			return nil, err
		}

		edge.RequirementType = domain.RequirementType(requirementType)
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return edges, nil
}
