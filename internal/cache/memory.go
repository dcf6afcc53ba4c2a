package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	snapshot  DashboardSnapshot
	expiresAt time.Time
}

// MemoryCache is an in-process SnapshotCache with per-entry TTL.
// Suitable for single-instance deployments and tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]map[uuid.UUID]memoryEntry
	ttl     time.Duration
}

// Verify MemoryCache implements SnapshotCache
var _ SnapshotCache = (*MemoryCache)(nil)

// NewMemoryCache creates a MemoryCache. A non-positive ttl disables expiry.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[uuid.UUID]map[uuid.UUID]memoryEntry),
		ttl:     ttl,
	}
}

// Get implements SnapshotCache.Get
func (c *MemoryCache) Get(_ context.Context, userID, pathID uuid.UUID) (*DashboardSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID][pathID]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries[userID], pathID)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}

	snapshot := entry.snapshot
	return &snapshot, nil
}

// Set implements SnapshotCache.Set
func (c *MemoryCache) Set(_ context.Context, snapshot *DashboardSnapshot) error {
	entry := memoryEntry{snapshot: *snapshot}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	byPath, ok := c.entries[snapshot.UserID]
	if !ok {
		byPath = make(map[uuid.UUID]memoryEntry)
		c.entries[snapshot.UserID] = byPath
	}
	byPath[snapshot.PathID] = entry
	return nil
}

// InvalidateUser implements SnapshotCache.InvalidateUser
func (c *MemoryCache) InvalidateUser(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

// InvalidateAll implements SnapshotCache.InvalidateAll
func (c *MemoryCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]map[uuid.UUID]memoryEntry)
	return nil
}
