package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hutchutchutch/learntrac/internal/cache"
	"github.com/hutchutchutch/learntrac/internal/domain/analytics"
	"github.com/hutchutchutch/learntrac/internal/graph"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// DefaultVelocityWindowWeeks is the trailing window used for learning
// velocity when the caller does not specify one.
const DefaultVelocityWindowWeeks = 4

// AnalyticsService computes progress analytics: path completion, learning
// velocity, cohort standing, and the composed dashboard. All math lives in
// the pure analytics package; this service feeds it ledger data and caches
// the results.
//
// Dashboard reads go through the snapshot cache. Cohort-wide recomputation
// happens in a background task, never inline with a progress write.
type AnalyticsService struct {
	progressStore store.ProgressStore
	conceptStore  store.ConceptStore
	pathStore     store.PathStore
	index         *graph.Index
	snapshots     cache.SnapshotCache
	logger        *slog.Logger

	// generation increments each time any snapshot is rebuilt
	generation atomic.Uint64
}

// NewAnalyticsService creates an AnalyticsService.
// It returns an error if any required dependency is nil.
func NewAnalyticsService(
	progressStore store.ProgressStore,
	conceptStore store.ConceptStore,
	pathStore store.PathStore,
	index *graph.Index,
	snapshots cache.SnapshotCache,
	logger *slog.Logger,
) (*AnalyticsService, error) {
	if progressStore == nil || conceptStore == nil || pathStore == nil {
		return nil, &ServiceError{
			Service:   "analytics_service",
			Operation: "create_service",
			Message:   "stores cannot be nil",
		}
	}
	if index == nil {
		return nil, &ServiceError{
			Service:   "analytics_service",
			Operation: "create_service",
			Message:   "index cannot be nil",
		}
	}
	if snapshots == nil {
		return nil, &ServiceError{
			Service:   "analytics_service",
			Operation: "create_service",
			Message:   "snapshot cache cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AnalyticsService{
		progressStore: progressStore,
		conceptStore:  conceptStore,
		pathStore:     pathStore,
		index:         index,
		snapshots:     snapshots,
		logger:        logger.With("component", "analytics_service"),
	}, nil
}

// PathCompletion returns the user's completion percentage for a path,
// counting only required concepts.
func (s *AnalyticsService) PathCompletion(ctx context.Context, userID, pathID uuid.UUID) (float64, error) {
	total, completed, err := s.pathCounts(ctx, userID, pathID)
	if err != nil {
		return 0, err
	}
	return analytics.PathCompletion(total, completed), nil
}

// pathCounts returns the number of required concepts in a path and how
// many of them the user has finished.
func (s *AnalyticsService) pathCounts(ctx context.Context, userID, pathID uuid.UUID) (total, completed int, err error) {
	pathConcepts, err := s.pathStore.ListConcepts(ctx, pathID)
	if err != nil {
		if errors.Is(err, store.ErrPathNotFound) {
			return 0, 0, ErrPathNotFound
		}
		return 0, 0, newServiceError("analytics_service", "path_counts", "failed to list path concepts", err)
	}
	if len(pathConcepts) == 0 {
		if _, err := s.pathStore.GetByID(ctx, pathID); err != nil {
			if errors.Is(err, store.ErrPathNotFound) {
				return 0, 0, ErrPathNotFound
			}
			return 0, 0, newServiceError("analytics_service", "path_counts", "failed to verify path", err)
		}
		return 0, 0, nil
	}

	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return 0, 0, newServiceError("analytics_service", "path_counts", "failed to list progress", err)
	}

	finished := make(map[uuid.UUID]bool, len(recs))
	for _, r := range recs {
		if r.Finished() {
			finished[r.ConceptID] = true
		}
	}

	for _, pc := range pathConcepts {
		if !pc.Required {
			continue
		}
		total++
		if finished[pc.ConceptID] {
			completed++
		}
	}

	return total, completed, nil
}

// LearningVelocity returns the user's completions per week over the
// trailing window.
func (s *AnalyticsService) LearningVelocity(ctx context.Context, userID uuid.UUID, windowWeeks int) (float64, error) {
	if windowWeeks <= 0 {
		windowWeeks = DefaultVelocityWindowWeeks
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -7*windowWeeks)
	completions, err := s.progressStore.ListCompletions(ctx, userID, since)
	if err != nil {
		return 0, newServiceError("analytics_service", "learning_velocity", "failed to list completions", err)
	}

	return analytics.LearningVelocity(completions, windowWeeks, now), nil
}

// CohortStanding ranks the user against every user with ledger rows.
func (s *AnalyticsService) CohortStanding(ctx context.Context, userID uuid.UUID) (analytics.CohortStanding, error) {
	userIDs, err := s.progressStore.ListCohortUserIDs(ctx)
	if err != nil {
		return analytics.CohortStanding{}, newServiceError(
			"analytics_service", "cohort_standing", "failed to list cohort", err)
	}

	var member analytics.CohortMember
	cohort := make([]analytics.CohortMember, 0, len(userIDs))
	found := false
	for _, id := range userIDs {
		m, err := s.cohortMember(ctx, id)
		if err != nil {
			return analytics.CohortStanding{}, err
		}
		cohort = append(cohort, m)
		if id == userID {
			member = m
			found = true
		}
	}
	if !found {
		// A user with no ledger rows ranks at the bottom of the cohort.
		member = analytics.CohortMember{UserID: userID}
		cohort = append(cohort, member)
	}

	return analytics.CohortPercentile(member, cohort), nil
}

// cohortMember aggregates one user's ledger into cohort dimensions.
func (s *AnalyticsService) cohortMember(ctx context.Context, userID uuid.UUID) (analytics.CohortMember, error) {
	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return analytics.CohortMember{}, newServiceError(
			"analytics_service", "cohort_member", "failed to list progress", err)
	}

	m := analytics.CohortMember{UserID: userID}
	var masterySum float64
	for _, r := range recs {
		if r.Finished() {
			m.CompletedCount++
		}
		m.TotalTimeMinutes += r.TimeSpentMinutes
		masterySum += r.Mastery
	}
	if len(recs) > 0 {
		m.AverageMastery = masterySum / float64(len(recs))
	}

	return m, nil
}

// EstimateCompletionDate projects when the user will finish the path's
// remaining required concepts at their current velocity. Returns nil when
// no estimate is possible (nothing remaining, or zero velocity).
func (s *AnalyticsService) EstimateCompletionDate(ctx context.Context, userID, pathID uuid.UUID) (*time.Time, error) {
	total, completed, err := s.pathCounts(ctx, userID, pathID)
	if err != nil {
		return nil, err
	}

	velocity, err := s.LearningVelocity(ctx, userID, DefaultVelocityWindowWeeks)
	if err != nil {
		return nil, err
	}

	return analytics.EstimateCompletionDate(total-completed, velocity, time.Now().UTC()), nil
}

// Dashboard returns the user's dashboard for a path, serving from the
// snapshot cache when possible and rebuilding on a miss.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID, pathID uuid.UUID) (*cache.DashboardSnapshot, error) {
	snapshot, err := s.snapshots.Get(ctx, userID, pathID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// A broken cache degrades to recomputation, not an error.
		s.logger.Warn("snapshot cache read failed",
			"error", err,
			"user_id", userID,
			"path_id", pathID)
	}

	return s.RebuildDashboard(ctx, userID, pathID)
}

// RebuildDashboard recomputes the dashboard snapshot from the ledger and
// stores it in the cache.
func (s *AnalyticsService) RebuildDashboard(ctx context.Context, userID, pathID uuid.UUID) (*cache.DashboardSnapshot, error) {
	total, completed, err := s.pathCounts(ctx, userID, pathID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	velocity, err := s.LearningVelocity(ctx, userID, DefaultVelocityWindowWeeks)
	if err != nil {
		return nil, err
	}

	standing, err := s.CohortStanding(ctx, userID)
	if err != nil {
		return nil, err
	}

	ready, err := s.readyInPath(ctx, userID, pathID)
	if err != nil {
		return nil, err
	}

	snapshot := &cache.DashboardSnapshot{
		UserID:                userID,
		PathID:                pathID,
		Generation:            s.generation.Add(1),
		CompletionPercent:     analytics.PathCompletion(total, completed),
		VelocityPerWeek:       velocity,
		CompletedPercentile:   standing.CompletedPercentile,
		MasteryPercentile:     standing.MasteryPercentile,
		TimePercentile:        standing.TimePercentile,
		CohortSize:            standing.CohortSize,
		ReadyConceptIDs:       ready,
		EstimatedCompletionAt: analytics.EstimateCompletionDate(total-completed, velocity, now),
		ComputedAt:            now,
	}

	if err := s.snapshots.Set(ctx, snapshot); err != nil {
		// Serve the computed snapshot even if caching it failed.
		s.logger.Warn("snapshot cache write failed",
			"error", err,
			"user_id", userID,
			"path_id", pathID)
	}

	return snapshot, nil
}

// readyInPath returns the path's concepts the user is ready to start but
// has not finished, in sequence order.
func (s *AnalyticsService) readyInPath(ctx context.Context, userID, pathID uuid.UUID) ([]uuid.UUID, error) {
	pathConcepts, err := s.pathStore.ListConcepts(ctx, pathID)
	if err != nil {
		if errors.Is(err, store.ErrPathNotFound) {
			return nil, ErrPathNotFound
		}
		return nil, newServiceError("analytics_service", "ready_in_path", "failed to list path concepts", err)
	}

	recs, err := s.progressStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("analytics_service", "ready_in_path", "failed to list progress", err)
	}

	masteryByConcept := make(map[uuid.UUID]float64, len(recs))
	finished := make(map[uuid.UUID]bool, len(recs))
	for _, r := range recs {
		masteryByConcept[r.ConceptID] = r.Mastery
		if r.Finished() {
			finished[r.ConceptID] = true
		}
	}

	ready := make([]uuid.UUID, 0, len(pathConcepts))
	for _, pc := range pathConcepts {
		if finished[pc.ConceptID] {
			continue
		}
		if s.index.IsReady(pc.ConceptID, masteryByConcept) {
			ready = append(ready, pc.ConceptID)
		}
	}

	return ready, nil
}

// RefreshCohort rebuilds snapshots for every (user, path) pair that a
// user holds progress in. Invoked by the background cohort refresh task.
func (s *AnalyticsService) RefreshCohort(ctx context.Context, pathID uuid.UUID) error {
	userIDs, err := s.progressStore.ListCohortUserIDs(ctx)
	if err != nil {
		return newServiceError("analytics_service", "refresh_cohort", "failed to list cohort", err)
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.RebuildDashboard(ctx, userID, pathID); err != nil {
			s.logger.Error("failed to rebuild dashboard during cohort refresh",
				"error", err,
				"user_id", userID,
				"path_id", pathID)
		}
	}

	s.logger.Info("cohort refresh completed", "path_id", pathID, "user_count", len(userIDs))
	return nil
}

// InvalidateUser drops the user's cached snapshots. Called by the cache
// invalidation handler after a progress write commits.
func (s *AnalyticsService) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return s.snapshots.InvalidateUser(ctx, userID)
}

// InvalidateAll drops every cached snapshot. Called after structural
// graph changes.
func (s *AnalyticsService) InvalidateAll(ctx context.Context) error {
	return s.snapshots.InvalidateAll(ctx)
}
