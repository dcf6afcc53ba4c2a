// Package cache provides read-through caching for dashboard snapshots.
//
// Snapshots are derived data: every value here can be recomputed from the
// progress ledger and the concept graph, so a cache loss is never a
// correctness problem. Writers invalidate by key after their transaction
// commits; a stale entry is served at most until the next invalidation
// or TTL expiry.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCacheMiss indicates the requested snapshot is not in the cache.
var ErrCacheMiss = errors.New("cache: snapshot not found")

// DashboardSnapshot is the cached form of a user's dashboard for one path.
// Generation increases each time the snapshot is rebuilt, so consumers can
// detect that a refresh happened between two reads.
type DashboardSnapshot struct {
	UserID     uuid.UUID `json:"user_id"`
	PathID     uuid.UUID `json:"path_id"`
	Generation uint64    `json:"generation"`

	CompletionPercent float64 `json:"completion_percent"`
	VelocityPerWeek   float64 `json:"velocity_per_week"`

	CompletedPercentile float64 `json:"completed_percentile"`
	MasteryPercentile   float64 `json:"mastery_percentile"`
	TimePercentile      float64 `json:"time_percentile"`
	CohortSize          int     `json:"cohort_size"`

	ReadyConceptIDs       []uuid.UUID `json:"ready_concept_ids"`
	EstimatedCompletionAt *time.Time  `json:"estimated_completion_at,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// SnapshotCache stores dashboard snapshots keyed by (user, path).
// Implementations must be safe for concurrent use.
type SnapshotCache interface {
	// Get returns the cached snapshot for the user and path, or
	// ErrCacheMiss if none is cached.
	Get(ctx context.Context, userID, pathID uuid.UUID) (*DashboardSnapshot, error)

	// Set stores a snapshot, replacing any existing entry for the
	// same user and path.
	Set(ctx context.Context, snapshot *DashboardSnapshot) error

	// InvalidateUser removes all cached snapshots for the user.
	InvalidateUser(ctx context.Context, userID uuid.UUID) error

	// InvalidateAll removes every cached snapshot. Used after
	// structural graph changes, which can affect any user's readiness.
	InvalidateAll(ctx context.Context) error
}
