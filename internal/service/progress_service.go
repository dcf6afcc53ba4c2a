package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/domain/mastery"
	"github.com/hutchutchutch/learntrac/internal/events"
	"github.com/hutchutchutch/learntrac/internal/graph"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// ProgressService owns the progress ledger: recording assessment attempts,
// reading per-user progress, and answering readiness questions against the
// concept graph.
//
// Concurrent attempts on the same (user, concept) pair are serialized by a
// row-level lock inside a transaction, so the read-modify-write in
// RecordAttempt never loses an assessment.
type ProgressService struct {
	db            *sql.DB
	progressStore store.ProgressStore
	conceptStore  store.ConceptStore
	index         *graph.Index
	params        *mastery.Params
	eventEmitter  events.EventEmitter
	logger        *slog.Logger
}

// NewProgressService creates a ProgressService.
// It returns an error if any required dependency is nil.
func NewProgressService(
	db *sql.DB,
	progressStore store.ProgressStore,
	conceptStore store.ConceptStore,
	index *graph.Index,
	params *mastery.Params,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (*ProgressService, error) {
	if db == nil {
		return nil, &ServiceError{
			Service:   "progress_service",
			Operation: "create_service",
			Message:   "db cannot be nil",
		}
	}
	if progressStore == nil || conceptStore == nil {
		return nil, &ServiceError{
			Service:   "progress_service",
			Operation: "create_service",
			Message:   "stores cannot be nil",
		}
	}
	if index == nil {
		return nil, &ServiceError{
			Service:   "progress_service",
			Operation: "create_service",
			Message:   "index cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{
			Service:   "progress_service",
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}
	if params == nil {
		params = mastery.NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ProgressService{
		db:            db,
		progressStore: progressStore,
		conceptStore:  conceptStore,
		index:         index,
		params:        params,
		eventEmitter:  eventEmitter,
		logger:        logger.With("component", "progress_service"),
	}, nil
}

// RecordAttempt applies one assessment attempt to a user's progress on a
// concept. A first attempt creates the ledger row; later attempts update
// it under a row lock. The returned record reflects the committed state.
func (s *ProgressService) RecordAttempt(
	ctx context.Context,
	userID, conceptID uuid.UUID,
	score float64,
	feedback string,
	timeSpentMinutes int,
) (*domain.ProgressRecord, error) {
	if _, err := s.conceptStore.GetByID(ctx, conceptID); err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return nil, ErrConceptNotFound
		}
		return nil, newServiceError("progress_service", "record_attempt", "failed to verify concept", err)
	}

	now := time.Now().UTC()
	var updated *domain.ProgressRecord

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.progressStore.WithTx(tx)

		current, err := txStore.GetForUpdate(ctx, userID, conceptID)
		switch {
		case errors.Is(err, store.ErrProgressNotFound):
			current, err = domain.NewProgressRecord(userID, conceptID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if err := txStore.Create(ctx, current); err != nil {
				return fmt.Errorf("failed to create progress record: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to lock progress record: %w", err)
		}

		updated, err = mastery.ApplyAttempt(current, score, feedback, timeSpentMinutes, now, s.params)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}

		if err := txStore.Update(ctx, updated); err != nil {
			return fmt.Errorf("failed to update progress record: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to record attempt",
			"error", err,
			"user_id", userID,
			"concept_id", conceptID)
		return nil, newServiceError("progress_service", "record_attempt", "transaction failed", err)
	}

	s.logger.Info("attempt recorded",
		"user_id", userID,
		"concept_id", conceptID,
		"mastery", updated.Mastery,
		"status", string(updated.Status))

	s.emitProgressRecorded(ctx, updated)
	return updated, nil
}

// SkipConcept marks a concept as skipped for a user. A skipped concept
// still counts its mastery toward prerequisite checks; only the status
// differs. Skipping an already finished concept is rejected.
func (s *ProgressService) SkipConcept(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error) {
	if _, err := s.conceptStore.GetByID(ctx, conceptID); err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return nil, ErrConceptNotFound
		}
		return nil, newServiceError("progress_service", "skip_concept", "failed to verify concept", err)
	}

	now := time.Now().UTC()
	var updated *domain.ProgressRecord

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.progressStore.WithTx(tx)

		current, err := txStore.GetForUpdate(ctx, userID, conceptID)
		switch {
		case errors.Is(err, store.ErrProgressNotFound):
			current, err = domain.NewProgressRecord(userID, conceptID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if err := txStore.Create(ctx, current); err != nil {
				return fmt.Errorf("failed to create progress record: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to lock progress record: %w", err)
		}

		if current.Finished() {
			return fmt.Errorf("%w: cannot skip a finished concept", ErrValidation)
		}

		copied := *current
		copied.Status = domain.ProgressSkipped
		accessed := now
		copied.LastAccessedAt = &accessed
		updated = &copied

		if err := txStore.Update(ctx, updated); err != nil {
			return fmt.Errorf("failed to update progress record: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, newServiceError("progress_service", "skip_concept", "transaction failed", err)
	}

	s.emitProgressRecorded(ctx, updated)
	return updated, nil
}

// GetProgress returns a user's progress on a concept. A user with no
// ledger row for the concept gets an unpersisted not-started record, so
// callers never need to special-case missing progress.
func (s *ProgressService) GetProgress(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error) {
	rec, err := s.progressStore.Get(ctx, userID, conceptID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrProgressNotFound) {
		return nil, newServiceError("progress_service", "get_progress", "failed to retrieve progress", err)
	}

	if _, err := s.conceptStore.GetByID(ctx, conceptID); err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return nil, ErrConceptNotFound
		}
		return nil, newServiceError("progress_service", "get_progress", "failed to verify concept", err)
	}

	return domain.NewProgressRecord(userID, conceptID)
}

// ListProgress returns all of a user's ledger rows.
func (s *ProgressService) ListProgress(ctx context.Context, userID uuid.UUID) ([]*domain.ProgressRecord, error) {
	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("progress_service", "list_progress", "failed to list progress", err)
	}
	return recs, nil
}

// IsReady reports whether a user satisfies every required prerequisite of
// the given concept at its per-edge mastery floor.
func (s *ProgressService) IsReady(ctx context.Context, userID, conceptID uuid.UUID) (bool, error) {
	if _, err := s.conceptStore.GetByID(ctx, conceptID); err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return false, ErrConceptNotFound
		}
		return false, newServiceError("progress_service", "is_ready", "failed to verify concept", err)
	}

	masteryByConcept, err := s.masteryMap(ctx, userID)
	if err != nil {
		return false, err
	}

	return s.index.IsReady(conceptID, masteryByConcept), nil
}

// ReadySet returns the IDs of every concept the user is currently ready
// to start, excluding concepts the user has already finished.
func (s *ProgressService) ReadySet(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	concepts, err := s.conceptStore.List(ctx)
	if err != nil {
		return nil, newServiceError("progress_service", "ready_set", "failed to list concepts", err)
	}

	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("progress_service", "ready_set", "failed to list progress", err)
	}

	masteryByConcept := make(map[uuid.UUID]float64, len(recs))
	finished := make(map[uuid.UUID]bool, len(recs))
	for _, r := range recs {
		masteryByConcept[r.ConceptID] = r.Mastery
		if r.Finished() {
			finished[r.ConceptID] = true
		}
	}

	ready := make([]uuid.UUID, 0, len(concepts))
	for _, c := range concepts {
		if finished[c.ID] {
			continue
		}
		if s.index.IsReady(c.ID, masteryByConcept) {
			ready = append(ready, c.ID)
		}
	}

	return ready, nil
}

// UserGraphNode is one concept in a per-user visualization view, annotated
// with the user's standing on it.
type UserGraphNode struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Difficulty float64   `json:"difficulty"`
	Status     string    `json:"status"`
	Mastery    float64   `json:"mastery"`
	Ready      bool      `json:"ready"`
}

// UserGraphView pairs the full concept graph with one user's status,
// mastery, and readiness per node, for client-side rendering.
type UserGraphView struct {
	UserID uuid.UUID       `json:"user_id"`
	Nodes  []UserGraphNode `json:"nodes"`
	Edges  []GraphEdge     `json:"edges"`
}

// UserGraph builds the per-user visualization view. Concepts without a
// ledger row report the implicit not_started status with zero mastery.
func (s *ProgressService) UserGraph(ctx context.Context, userID uuid.UUID) (*UserGraphView, error) {
	concepts, err := s.conceptStore.List(ctx)
	if err != nil {
		return nil, newServiceError("progress_service", "user_graph", "failed to list concepts", err)
	}
	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("progress_service", "user_graph", "failed to list progress", err)
	}

	masteryByConcept := make(map[uuid.UUID]float64, len(recs))
	statusByConcept := make(map[uuid.UUID]domain.ProgressStatus, len(recs))
	for _, r := range recs {
		masteryByConcept[r.ConceptID] = r.Mastery
		statusByConcept[r.ConceptID] = r.Status
	}

	view := &UserGraphView{
		UserID: userID,
		Nodes:  make([]UserGraphNode, 0, len(concepts)),
		Edges:  []GraphEdge{},
	}
	for _, c := range concepts {
		status, ok := statusByConcept[c.ID]
		if !ok {
			status = domain.ProgressNotStarted
		}
		view.Nodes = append(view.Nodes, UserGraphNode{
			ID:         c.ID,
			Code:       c.Code,
			Name:       c.Name,
			Category:   c.Category,
			Difficulty: c.Difficulty,
			Status:     string(status),
			Mastery:    masteryByConcept[c.ID],
			Ready:      s.index.IsReady(c.ID, masteryByConcept),
		})
		for _, e := range s.index.DirectPrerequisites(c.ID) {
			view.Edges = append(view.Edges, GraphEdge{
				ConceptID:       e.ConceptID,
				PrerequisiteID:  e.PrerequisiteID,
				RequirementType: string(e.RequirementType),
				MinMastery:      e.MinMastery,
			})
		}
	}

	return view, nil
}

// masteryMap loads the user's mastery level per concept.
func (s *ProgressService) masteryMap(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]float64, error) {
	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("progress_service", "mastery_map", "failed to list progress", err)
	}

	m := make(map[uuid.UUID]float64, len(recs))
	for _, r := range recs {
		m[r.ConceptID] = r.Mastery
	}
	return m, nil
}

// emitProgressRecorded publishes a progress event. Emission failures are
// logged, not returned: the write already committed.
func (s *ProgressService) emitProgressRecorded(ctx context.Context, rec *domain.ProgressRecord) {
	event, err := events.NewEvent(events.EventTypeProgressRecorded, events.ProgressRecordedPayload{
		UserID:    rec.UserID,
		ConceptID: rec.ConceptID,
		Mastery:   rec.Mastery,
		Status:    string(rec.Status),
	})
	if err != nil {
		s.logger.Error("failed to create progress event", "error", err, "user_id", rec.UserID)
		return
	}
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit progress event", "error", err, "user_id", rec.UserID)
	}
}
