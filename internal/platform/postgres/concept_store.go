package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/platform/logger"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// PostgresConceptStore implements the store.ConceptStore interface
// using a PostgreSQL database as the storage backend.
type PostgresConceptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresConceptStore creates a new PostgreSQL implementation of the ConceptStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresConceptStore(db store.DBTX, logger *slog.Logger) *PostgresConceptStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresConceptStore{
		db:     db,
		logger: logger.With(slog.String("component", "concept_store")),
	}
}

// Ensure PostgresConceptStore implements store.ConceptStore interface
var _ store.ConceptStore = (*PostgresConceptStore)(nil)

// WithTx implements store.ConceptStore.WithTx
func (s *PostgresConceptStore) WithTx(tx *sql.Tx) store.ConceptStore {
	return NewPostgresConceptStore(tx, s.logger)
}

// Create implements store.ConceptStore.Create
// It saves a new concept to the database, handling domain validation.
// Returns store.ErrConceptCodeExists if the code is already in use.
func (s *PostgresConceptStore) Create(ctx context.Context, concept *domain.Concept) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := concept.Validate(); err != nil {
		log.Warn("concept validation failed during create",
			slog.String("error", err.Error()),
			slog.String("concept_id", concept.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tagsJSON, metadataJSON, err := marshalConceptJSON(concept)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO concepts (id, code, name, category, tags, difficulty, estimated_minutes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		concept.ID,
		concept.Code,
		concept.Name,
		concept.Category,
		tagsJSON,
		concept.Difficulty,
		concept.EstimatedMinutes,
		metadataJSON,
		concept.CreatedAt,
		concept.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate concept code",
				slog.String("concept_id", concept.ID.String()),
				slog.String("code", concept.Code))
			return fmt.Errorf("%w: %q", store.ErrConceptCodeExists, concept.Code)
		}

		log.Error("failed to create concept",
			slog.String("error", err.Error()),
			slog.String("concept_id", concept.ID.String()))
		return MapError(err)
	}

	log.Info("concept created successfully",
		slog.String("concept_id", concept.ID.String()),
		slog.String("code", concept.Code))
	return nil
}

// GetByID implements store.ConceptStore.GetByID
// Returns store.ErrConceptNotFound if the concept does not exist.
func (s *PostgresConceptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Concept, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByCode implements store.ConceptStore.GetByCode
// Returns store.ErrConceptNotFound if the concept does not exist.
func (s *PostgresConceptStore) GetByCode(ctx context.Context, code string) (*domain.Concept, error) {
	return s.getOne(ctx, "code = $1", code)
}

func (s *PostgresConceptStore) getOne(ctx context.Context, where string, arg any) (*domain.Concept, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, code, name, category, tags, difficulty, estimated_minutes, metadata, created_at, updated_at
		FROM concepts
		WHERE ` + where

	concept, err := scanConcept(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConceptNotFound
		}
		log.Error("failed to get concept",
			slog.String("error", err.Error()))
		return nil, err
	}

	return concept, nil
}

// Update implements store.ConceptStore.Update
// Returns store.ErrConceptNotFound if the concept does not exist.
func (s *PostgresConceptStore) Update(ctx context.Context, concept *domain.Concept) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := concept.Validate(); err != nil {
		log.Warn("concept validation failed during update",
			slog.String("error", err.Error()),
			slog.String("concept_id", concept.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tagsJSON, metadataJSON, err := marshalConceptJSON(concept)
	if err != nil {
		return err
	}

	updatedAt := time.Now().UTC()

	query := `
		UPDATE concepts
		SET code = $1, name = $2, category = $3, tags = $4, difficulty = $5,
		    estimated_minutes = $6, metadata = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		concept.Code,
		concept.Name,
		concept.Category,
		tagsJSON,
		concept.Difficulty,
		concept.EstimatedMinutes,
		metadataJSON,
		updatedAt,
		concept.ID,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", store.ErrConceptCodeExists, concept.Code)
		}
		log.Error("failed to update concept",
			slog.String("error", err.Error()),
			slog.String("concept_id", concept.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "concept"); err != nil {
		return err
	}

	concept.UpdatedAt = updatedAt

	log.Info("concept updated successfully",
		slog.String("concept_id", concept.ID.String()))
	return nil
}

// Delete implements store.ConceptStore.Delete
// Concepts referenced by edges, paths, or progress records are protected by
// RESTRICT foreign keys; deleting one returns store.ErrDeleteFailed.
func (s *PostgresConceptStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM concepts WHERE id = $1`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("concept still referenced, delete rejected",
				slog.String("concept_id", id.String()))
			return fmt.Errorf("%w: concept %s is still referenced", store.ErrDeleteFailed, id)
		}
		log.Error("failed to delete concept",
			slog.String("error", err.Error()),
			slog.String("concept_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "concept")
}

// List implements store.ConceptStore.List
// Returns all concepts ordered by code; an empty slice if none exist.
func (s *PostgresConceptStore) List(ctx context.Context) ([]*domain.Concept, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, code, name, category, tags, difficulty, estimated_minutes, metadata, created_at, updated_at
		FROM concepts
		ORDER BY code
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list concepts", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	concepts := []*domain.Concept{}
	for rows.Next() {
		concept, err := scanConcept(rows)
		if err != nil {
			log.Error("failed to scan concept row", slog.String("error", err.Error()))
			return nil, err
		}
		concepts = append(concepts, concept)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return concepts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcept(row rowScanner) (*domain.Concept, error) {
	var concept domain.Concept
	var tagsJSON, metadataJSON []byte

	err := row.Scan(
		&concept.ID,
		&concept.Code,
		&concept.Name,
		&concept.Category,
		&tagsJSON,
		&concept.Difficulty,
		&concept.EstimatedMinutes,
		&metadataJSON,
		&concept.CreatedAt,
		&concept.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &concept.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode concept tags: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &concept.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode concept metadata: %w", err)
		}
	}

	return &concept, nil
}

func marshalConceptJSON(concept *domain.Concept) (tags, metadata []byte, err error) {
	tags, err = json.Marshal(concept.Tags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode concept tags: %w", err)
	}
	metadata, err = json.Marshal(concept.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode concept metadata: %w", err)
	}
	return tags, metadata, nil
}
