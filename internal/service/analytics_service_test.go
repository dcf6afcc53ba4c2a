package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hutchutchutch/learntrac/internal/cache"
	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/graph"
	"github.com/hutchutchutch/learntrac/internal/service"
	"github.com/hutchutchutch/learntrac/internal/store"
)

func newAnalyticsService(
	t *testing.T,
	progressStore *MockProgressStore,
	pathStore *MockPathStore,
	snapshots cache.SnapshotCache,
) *service.AnalyticsService {
	t.Helper()

	if snapshots == nil {
		snapshots = cache.NewMemoryCache(time.Minute)
	}

	svc, err := service.NewAnalyticsService(
		progressStore, new(MockConceptStore), pathStore, graph.NewIndex(), snapshots, testLogger())
	require.NoError(t, err)
	return svc
}

func finishedRecord(t *testing.T, userID, conceptID uuid.UUID, mastery float64, completedAt time.Time) *domain.ProgressRecord {
	t.Helper()
	rec, err := domain.NewProgressRecord(userID, conceptID)
	require.NoError(t, err)
	rec.Status = domain.ProgressMastered
	rec.Mastery = mastery
	rec.CompletedAt = &completedAt
	return rec
}

func TestPathCompletion(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	pathID := uuid.New()

	t.Run("counts only required concepts", func(t *testing.T) {
		conceptIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
		optionalID := uuid.New()

		pathConcepts := make([]domain.PathConcept, 0, 5)
		for i, id := range conceptIDs {
			pathConcepts = append(pathConcepts, domain.PathConcept{
				PathID: pathID, ConceptID: id, SequenceOrder: i, Required: true,
			})
		}
		pathConcepts = append(pathConcepts, domain.PathConcept{
			PathID: pathID, ConceptID: optionalID, SequenceOrder: 4, Required: false,
		})

		now := time.Now().UTC()
		recs := []*domain.ProgressRecord{
			finishedRecord(t, userID, conceptIDs[0], 0.9, now),
			finishedRecord(t, userID, conceptIDs[1], 0.85, now),
			finishedRecord(t, userID, conceptIDs[2], 0.8, now),
			// The optional concept is finished too; it must not count.
			finishedRecord(t, userID, optionalID, 0.9, now),
		}

		pathStore := new(MockPathStore)
		pathStore.On("ListConcepts", mock.Anything, pathID).Return(pathConcepts, nil)

		progressStore := new(MockProgressStore)
		progressStore.On("ListByUser", mock.Anything, userID).Return(recs, nil)

		svc := newAnalyticsService(t, progressStore, pathStore, nil)

		pct, err := svc.PathCompletion(ctx, userID, pathID)
		require.NoError(t, err)
		assert.Equal(t, 75.0, pct)
	})

	t.Run("empty path verifies existence", func(t *testing.T) {
		pathStore := new(MockPathStore)
		pathStore.On("ListConcepts", mock.Anything, pathID).Return([]domain.PathConcept{}, nil)
		pathStore.On("GetByID", mock.Anything, pathID).Return(nil, store.ErrPathNotFound)

		svc := newAnalyticsService(t, new(MockProgressStore), pathStore, nil)

		_, err := svc.PathCompletion(ctx, userID, pathID)
		assert.ErrorIs(t, err, service.ErrPathNotFound)
	})
}

func TestCohortStanding(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks the user in the cohort", func(t *testing.T) {
		now := time.Now().UTC()
		userID := uuid.New()
		otherID := uuid.New()

		progressStore := new(MockProgressStore)
		progressStore.On("ListCohortUserIDs", mock.Anything).Return([]uuid.UUID{otherID, userID}, nil)
		progressStore.On("ListByUser", mock.Anything, otherID).Return([]*domain.ProgressRecord{
			finishedRecord(t, otherID, uuid.New(), 0.8, now),
		}, nil)
		progressStore.On("ListByUser", mock.Anything, userID).Return([]*domain.ProgressRecord{
			finishedRecord(t, userID, uuid.New(), 0.9, now),
			finishedRecord(t, userID, uuid.New(), 0.9, now),
		}, nil)

		svc := newAnalyticsService(t, progressStore, new(MockPathStore), nil)

		standing, err := svc.CohortStanding(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, standing.CohortSize)
		assert.Equal(t, 100.0, standing.CompletedPercentile)
	})

	t.Run("user outside the cohort ranks at the bottom", func(t *testing.T) {
		now := time.Now().UTC()
		otherID := uuid.New()

		progressStore := new(MockProgressStore)
		progressStore.On("ListCohortUserIDs", mock.Anything).Return([]uuid.UUID{otherID}, nil)
		progressStore.On("ListByUser", mock.Anything, otherID).Return([]*domain.ProgressRecord{
			finishedRecord(t, otherID, uuid.New(), 0.8, now),
		}, nil)

		svc := newAnalyticsService(t, progressStore, new(MockPathStore), nil)

		standing, err := svc.CohortStanding(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 2, standing.CohortSize)
		assert.Less(t, standing.CompletedPercentile, 100.0)
	})
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	pathID := uuid.New()

	// Single-concept path, finished, one cohort member.
	setupStores := func(t *testing.T) (*MockProgressStore, *MockPathStore) {
		t.Helper()
		now := time.Now().UTC()
		conceptID := uuid.New()

		pathStore := new(MockPathStore)
		pathStore.On("ListConcepts", mock.Anything, pathID).Return([]domain.PathConcept{
			{PathID: pathID, ConceptID: conceptID, SequenceOrder: 0, Required: true},
		}, nil)

		progressStore := new(MockProgressStore)
		progressStore.On("ListByUser", mock.Anything, userID).Return([]*domain.ProgressRecord{
			finishedRecord(t, userID, conceptID, 0.9, now),
		}, nil)
		progressStore.On("ListCompletions", mock.Anything, userID, mock.Anything).
			Return([]time.Time{now.AddDate(0, 0, -3)}, nil)
		progressStore.On("ListCohortUserIDs", mock.Anything).Return([]uuid.UUID{userID}, nil)

		return progressStore, pathStore
	}

	t.Run("rebuilds on a miss and serves from cache afterwards", func(t *testing.T) {
		progressStore, pathStore := setupStores(t)
		svc := newAnalyticsService(t, progressStore, pathStore, nil)

		first, err := svc.Dashboard(ctx, userID, pathID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, first.CompletionPercent)
		assert.Equal(t, uint64(1), first.Generation)

		second, err := svc.Dashboard(ctx, userID, pathID)
		require.NoError(t, err)
		assert.Equal(t, first.Generation, second.Generation)
	})

	t.Run("explicit rebuild advances the generation", func(t *testing.T) {
		progressStore, pathStore := setupStores(t)
		svc := newAnalyticsService(t, progressStore, pathStore, nil)

		first, err := svc.RebuildDashboard(ctx, userID, pathID)
		require.NoError(t, err)
		second, err := svc.RebuildDashboard(ctx, userID, pathID)
		require.NoError(t, err)

		assert.Greater(t, second.Generation, first.Generation)
	})

	t.Run("degrades to recomputation when the cache is broken", func(t *testing.T) {
		progressStore, pathStore := setupStores(t)

		snapshots := new(MockSnapshotCache)
		snapshots.On("Get", mock.Anything, userID, pathID).Return(nil, errors.New("redis unavailable"))
		snapshots.On("Set", mock.Anything, mock.Anything).Return(errors.New("redis unavailable"))

		svc := newAnalyticsService(t, progressStore, pathStore, snapshots)

		snapshot, err := svc.Dashboard(ctx, userID, pathID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, snapshot.CompletionPercent)
	})
}

func TestRefreshCohort(t *testing.T) {
	ctx := context.Background()
	pathID := uuid.New()
	userID := uuid.New()
	conceptID := uuid.New()
	now := time.Now().UTC()

	pathStore := new(MockPathStore)
	pathStore.On("ListConcepts", mock.Anything, pathID).Return([]domain.PathConcept{
		{PathID: pathID, ConceptID: conceptID, SequenceOrder: 0, Required: true},
	}, nil)

	progressStore := new(MockProgressStore)
	progressStore.On("ListCohortUserIDs", mock.Anything).Return([]uuid.UUID{userID}, nil)
	progressStore.On("ListByUser", mock.Anything, userID).Return([]*domain.ProgressRecord{
		finishedRecord(t, userID, conceptID, 0.9, now),
	}, nil)
	progressStore.On("ListCompletions", mock.Anything, userID, mock.Anything).
		Return([]time.Time{now.AddDate(0, 0, -3)}, nil)

	snapshots := cache.NewMemoryCache(time.Minute)
	svc := newAnalyticsService(t, progressStore, pathStore, snapshots)

	require.NoError(t, svc.RefreshCohort(ctx, pathID))

	cached, err := snapshots.Get(ctx, userID, pathID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cached.CompletionPercent)
}
