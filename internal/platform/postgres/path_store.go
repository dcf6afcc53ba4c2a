package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/platform/logger"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// PostgresPathStore implements the store.PathStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPathStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPathStore creates a new PostgreSQL implementation of the PathStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresPathStore(db store.DBTX, logger *slog.Logger) *PostgresPathStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPathStore{
		db:     db,
		logger: logger.With(slog.String("component", "path_store")),
	}
}

// Ensure PostgresPathStore implements store.PathStore interface
var _ store.PathStore = (*PostgresPathStore)(nil)

// WithTx implements store.PathStore.WithTx
func (s *PostgresPathStore) WithTx(tx *sql.Tx) store.PathStore {
	return NewPostgresPathStore(tx, s.logger)
}

// Create implements store.PathStore.Create
func (s *PostgresPathStore) Create(ctx context.Context, path *domain.Path) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := path.Validate(); err != nil {
		log.Warn("path validation failed during create",
			slog.String("error", err.Error()),
			slog.String("path_id", path.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO paths (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		path.ID,
		path.Name,
		path.Description,
		path.CreatedAt,
		path.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create path",
			slog.String("error", err.Error()),
			slog.String("path_id", path.ID.String()))
		return MapError(err)
	}

	log.Info("path created successfully",
		slog.String("path_id", path.ID.String()),
		slog.String("name", path.Name))
	return nil
}

// GetByID implements store.PathStore.GetByID
// Returns store.ErrPathNotFound if the path does not exist.
func (s *PostgresPathStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Path, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM paths
		WHERE id = $1
	`

	var path domain.Path
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&path.ID,
		&path.Name,
		&path.Description,
		&path.CreatedAt,
		&path.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPathNotFound
		}
		log.Error("failed to get path by ID",
			slog.String("error", err.Error()),
			slog.String("path_id", id.String()))
		return nil, err
	}

	return &path, nil
}

// AddConcept implements store.PathStore.AddConcept
// Returns store.ErrSequenceOrderExists when the sequence order is already
// taken within the path.
func (s *PostgresPathStore) AddConcept(ctx context.Context, pc *domain.PathConcept) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := pc.Validate(); err != nil {
		log.Warn("path concept validation failed",
			slog.String("error", err.Error()),
			slog.String("path_id", pc.PathID.String()),
			slog.String("concept_id", pc.ConceptID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO path_concepts (path_id, concept_id, sequence_order, required)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		pc.PathID,
		pc.ConceptID,
		pc.SequenceOrder,
		pc.Required,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: order %d in path %s",
				store.ErrSequenceOrderExists, pc.SequenceOrder, pc.PathID)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: path or concept not found", store.ErrInvalidEntity)
		}
		log.Error("failed to add concept to path",
			slog.String("error", err.Error()),
			slog.String("path_id", pc.PathID.String()),
			slog.String("concept_id", pc.ConceptID.String()))
		return MapError(err)
	}

	log.Info("concept added to path",
		slog.String("path_id", pc.PathID.String()),
		slog.String("concept_id", pc.ConceptID.String()),
		slog.Int("sequence_order", pc.SequenceOrder))
	return nil
}

// RemoveConcept implements store.PathStore.RemoveConcept
func (s *PostgresPathStore) RemoveConcept(ctx context.Context, pathID, conceptID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM path_concepts
		WHERE path_id = $1 AND concept_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, pathID, conceptID)
	if err != nil {
		log.Error("failed to remove concept from path",
			slog.String("error", err.Error()),
			slog.String("path_id", pathID.String()),
			slog.String("concept_id", conceptID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "path concept")
}

// ListConcepts implements store.PathStore.ListConcepts
// Returns the path's membership rows ordered by sequence order.
func (s *PostgresPathStore) ListConcepts(ctx context.Context, pathID uuid.UUID) ([]domain.PathConcept, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT path_id, concept_id, sequence_order, required
		FROM path_concepts
		WHERE path_id = $1
		ORDER BY sequence_order
	`

	rows, err := s.db.QueryContext(ctx, query, pathID)
	if err != nil {
		log.Error("failed to list path concepts",
			slog.String("error", err.Error()),
			slog.String("path_id", pathID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	concepts := []domain.PathConcept{}
	for rows.Next() {
		var pc domain.PathConcept
		err := rows.Scan(&pc.PathID, &pc.ConceptID, &pc.SequenceOrder, &pc.Required)
		if err != nil {
			log.Error("failed to scan path concept row", slog.String("error", err.Error()))
			return nil, err
		}
		concepts = append(concepts, pc)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return concepts, nil
}

// List implements store.PathStore.List
func (s *PostgresPathStore) List(ctx context.Context) ([]*domain.Path, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM paths
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list paths", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("error closing rows", slog.String("error", cerr.Error()))
		}
	}()

	paths := []*domain.Path{}
	for rows.Next() {
		var path domain.Path
		err := rows.Scan(&path.ID, &path.Name, &path.Description, &path.CreatedAt, &path.UpdatedAt)
		if err != nil {
			log.Error("failed to scan path row", slog.String("error", err.Error()))
			return nil, err
		}
		paths = append(paths, &path)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return paths, nil
}
