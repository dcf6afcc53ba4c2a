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

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
//
// Rows are keyed by (user_id, concept_id). Attempt application goes through
// GetForUpdate inside a transaction, which serializes the mastery max-merge
// and the additive time accumulation per row: concurrent attempts on the
// same row queue on the row lock instead of overwriting each other.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// WithTx implements store.ProgressStore.WithTx
func (s *PostgresProgressStore) WithTx(tx *sql.Tx) store.ProgressStore {
	return NewPostgresProgressStore(tx, s.logger)
}

const progressColumns = `user_id, concept_id, status, mastery, time_spent_minutes,
		started_at, last_accessed_at, completed_at, assessments, created_at, updated_at`

// Create implements store.ProgressStore.Create
// Returns store.ErrDuplicate if a record for (user, concept) already exists.
func (s *PostgresProgressStore) Create(ctx context.Context, rec *domain.ProgressRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("progress validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", rec.UserID.String()),
			slog.String("concept_id", rec.ConceptID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	assessmentsJSON, err := json.Marshal(rec.Assessments)
	if err != nil {
		return fmt.Errorf("failed to encode assessments: %w", err)
	}

	query := `
		INSERT INTO progress_records (` + progressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		rec.UserID,
		rec.ConceptID,
		rec.Status,
		rec.Mastery,
		rec.TimeSpentMinutes,
		rec.StartedAt,
		rec.LastAccessedAt,
		rec.CompletedAt,
		assessmentsJSON,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: progress for user %s concept %s",
				store.ErrDuplicate, rec.UserID, rec.ConceptID)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: concept %s not found", store.ErrInvalidEntity, rec.ConceptID)
		}
		log.Error("failed to create progress record",
			slog.String("error", err.Error()),
			slog.String("user_id", rec.UserID.String()),
			slog.String("concept_id", rec.ConceptID.String()))
		return MapError(err)
	}

	log.Info("progress record created",
		slog.String("user_id", rec.UserID.String()),
		slog.String("concept_id", rec.ConceptID.String()))
	return nil
}

// Get implements store.ProgressStore.Get
// Returns store.ErrProgressNotFound if no record exists.
func (s *PostgresProgressStore) Get(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error) {
	return s.get(ctx, userID, conceptID, false)
}

// GetForUpdate implements store.ProgressStore.GetForUpdate
// It acquires a row-level lock with SELECT ... FOR UPDATE and must be
// called within a transaction.
func (s *PostgresProgressStore) GetForUpdate(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error) {
	return s.get(ctx, userID, conceptID, true)
}

func (s *PostgresProgressStore) get(ctx context.Context, userID, conceptID uuid.UUID, forUpdate bool) (*domain.ProgressRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1 AND concept_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	rec, err := scanProgress(s.db.QueryRowContext(ctx, query, userID, conceptID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		log.Error("failed to get progress record",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("concept_id", conceptID.String()))
		return nil, err
	}

	return rec, nil
}

// Update implements store.ProgressStore.Update
// Returns store.ErrConcurrentModification if the row vanished between the
// lock acquisition and the write.
func (s *PostgresProgressStore) Update(ctx context.Context, rec *domain.ProgressRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("progress validation failed during update",
			slog.String("error", err.Error()),
			slog.String("user_id", rec.UserID.String()),
			slog.String("concept_id", rec.ConceptID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	assessmentsJSON, err := json.Marshal(rec.Assessments)
	if err != nil {
		return fmt.Errorf("failed to encode assessments: %w", err)
	}

	query := `
		UPDATE progress_records
		SET status = $1, mastery = $2, time_spent_minutes = $3, started_at = $4,
		    last_accessed_at = $5, completed_at = $6, assessments = $7, updated_at = $8
		WHERE user_id = $9 AND concept_id = $10
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		rec.Status,
		rec.Mastery,
		rec.TimeSpentMinutes,
		rec.StartedAt,
		rec.LastAccessedAt,
		rec.CompletedAt,
		assessmentsJSON,
		rec.UpdatedAt,
		rec.UserID,
		rec.ConceptID,
	)

	if err != nil {
		log.Error("failed to update progress record",
			slog.String("error", err.Error()),
			slog.String("user_id", rec.UserID.String()),
			slog.String("concept_id", rec.ConceptID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The row was locked when read; it disappearing here means another
		// writer raced us outside the expected locking protocol.
		return fmt.Errorf("%w: progress for user %s concept %s",
			store.ErrConcurrentModification, rec.UserID, rec.ConceptID)
	}

	log.Debug("progress record updated",
		slog.String("user_id", rec.UserID.String()),
		slog.String("concept_id", rec.ConceptID.String()),
		slog.String("status", string(rec.Status)))
	return nil
}

// ListByUser implements store.ProgressStore.ListByUser
func (s *PostgresProgressStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ProgressRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1
		ORDER BY concept_id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list progress records",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	records := []*domain.ProgressRecord{}
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			log.Error("failed to scan progress row", slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return records, nil
}

// ListCompletions implements store.ProgressStore.ListCompletions
// Returns completion timestamps of finished concepts since the given time.
func (s *PostgresProgressStore) ListCompletions(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT completed_at
		FROM progress_records
		WHERE user_id = $1
		  AND completed_at IS NOT NULL
		  AND completed_at >= $2
		  AND status IN ('completed', 'mastered')
		ORDER BY completed_at
	`

	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		log.Error("failed to list completions",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	completions := []time.Time{}
	for rows.Next() {
		var completedAt time.Time
		if err := rows.Scan(&completedAt); err != nil {
			log.Error("failed to scan completion row", slog.String("error", err.Error()))
			return nil, err
		}
		completions = append(completions, completedAt)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return completions, nil
}

// ListCohortUserIDs implements store.ProgressStore.ListCohortUserIDs
// The cohort is every user with at least one progress record.
func (s *PostgresProgressStore) ListCohortUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT DISTINCT user_id
		FROM progress_records
		ORDER BY user_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list cohort users", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	userIDs := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			log.Error("failed to scan cohort user row", slog.String("error", err.Error()))
			return nil, err
		}
		userIDs = append(userIDs, id)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return userIDs, nil
}

func scanProgress(row rowScanner) (*domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	var status string
	var assessmentsJSON []byte

	err := row.Scan(
		&rec.UserID,
		&rec.ConceptID,
		&status,
		&rec.Mastery,
		&rec.TimeSpentMinutes,
		&rec.StartedAt,
		&rec.LastAccessedAt,
		&rec.CompletedAt,
		&assessmentsJSON,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.ProgressStatus(status)

	if len(assessmentsJSON) > 0 {
		if err := json.Unmarshal(assessmentsJSON, &rec.Assessments); err != nil {
			return nil, fmt.Errorf("failed to decode assessments: %w", err)
		}
	}

	return &rec, nil
}
