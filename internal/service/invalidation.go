package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hutchutchutch/learntrac/internal/cache"
	"github.com/hutchutchutch/learntrac/internal/events"
)

// SnapshotInvalidationHandler reacts to committed writes by dropping the
// affected dashboard snapshots from the cache. Progress writes invalidate
// one user; structural graph changes can shift any user's readiness, so
// they invalidate everything.
type SnapshotInvalidationHandler struct {
	snapshots cache.SnapshotCache
	logger    *slog.Logger
}

// Verify SnapshotInvalidationHandler implements events.EventHandler
var _ events.EventHandler = (*SnapshotInvalidationHandler)(nil)

// NewSnapshotInvalidationHandler creates a handler bound to the given cache.
func NewSnapshotInvalidationHandler(snapshots cache.SnapshotCache, logger *slog.Logger) *SnapshotInvalidationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotInvalidationHandler{
		snapshots: snapshots,
		logger:    logger.With("component", "snapshot_invalidation_handler"),
	}
}

// HandleEvent implements events.EventHandler.
func (h *SnapshotInvalidationHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.EventTypeProgressRecorded:
		var payload events.ProgressRecordedPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("failed to unmarshal progress payload: %w", err)
		}
		if err := h.snapshots.InvalidateUser(ctx, payload.UserID); err != nil {
			return fmt.Errorf("failed to invalidate user snapshots: %w", err)
		}
		h.logger.Debug("invalidated user snapshots",
			"user_id", payload.UserID, "event_id", event.ID)
		return nil

	case events.EventTypeGraphChanged:
		if err := h.snapshots.InvalidateAll(ctx); err != nil {
			return fmt.Errorf("failed to invalidate snapshots: %w", err)
		}
		h.logger.Debug("invalidated all snapshots", "event_id", event.ID)
		return nil

	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type, "event_id", event.ID)
		return nil
	}
}
