package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutchutchutch/learntrac/internal/cache"
	"github.com/hutchutchutch/learntrac/internal/events"
	"github.com/hutchutchutch/learntrac/internal/service"
)

func cachedSnapshot(t *testing.T, snapshots cache.SnapshotCache, userID, pathID uuid.UUID) {
	t.Helper()
	err := snapshots.Set(context.Background(), &cache.DashboardSnapshot{
		UserID:     userID,
		PathID:     pathID,
		ComputedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestSnapshotInvalidationHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("progress event invalidates one user", func(t *testing.T) {
		snapshots := cache.NewMemoryCache(time.Minute)
		userA := uuid.New()
		userB := uuid.New()
		pathID := uuid.New()
		cachedSnapshot(t, snapshots, userA, pathID)
		cachedSnapshot(t, snapshots, userB, pathID)

		handler := service.NewSnapshotInvalidationHandler(snapshots, testLogger())

		event, err := events.NewEvent(events.EventTypeProgressRecorded, events.ProgressRecordedPayload{
			UserID:    userA,
			ConceptID: uuid.New(),
			Mastery:   0.9,
			Status:    "mastered",
		})
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(ctx, event))

		_, err = snapshots.Get(ctx, userA, pathID)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
		_, err = snapshots.Get(ctx, userB, pathID)
		assert.NoError(t, err)
	})

	t.Run("graph event invalidates everyone", func(t *testing.T) {
		snapshots := cache.NewMemoryCache(time.Minute)
		userA := uuid.New()
		userB := uuid.New()
		pathID := uuid.New()
		cachedSnapshot(t, snapshots, userA, pathID)
		cachedSnapshot(t, snapshots, userB, pathID)

		handler := service.NewSnapshotInvalidationHandler(snapshots, testLogger())

		event, err := events.NewEvent(events.EventTypeGraphChanged, events.GraphChangedPayload{
			ConceptIDs: []uuid.UUID{uuid.New()},
			Change:     "edge_added",
		})
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(ctx, event))

		_, err = snapshots.Get(ctx, userA, pathID)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
		_, err = snapshots.Get(ctx, userB, pathID)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("unknown event types are ignored", func(t *testing.T) {
		snapshots := cache.NewMemoryCache(time.Minute)
		userID := uuid.New()
		pathID := uuid.New()
		cachedSnapshot(t, snapshots, userID, pathID)

		handler := service.NewSnapshotInvalidationHandler(snapshots, testLogger())

		event, err := events.NewEvent("user.logged_in", map[string]string{"user": "x"})
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(ctx, event))

		_, err = snapshots.Get(ctx, userID, pathID)
		assert.NoError(t, err)
	})
}
