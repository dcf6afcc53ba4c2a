package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a SnapshotCache backed by Redis, for deployments where
// multiple API instances share cached dashboards.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Verify RedisCache implements SnapshotCache
var _ SnapshotCache = (*RedisCache)(nil)

// NewRedisCache creates a RedisCache using the given client. A non-positive
// ttl stores entries without expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func snapshotKey(userID, pathID uuid.UUID) string {
	return fmt.Sprintf("dashboard:%s:%s", userID, pathID)
}

// Get implements SnapshotCache.Get
func (c *RedisCache) Get(ctx context.Context, userID, pathID uuid.UUID) (*DashboardSnapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(userID, pathID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snapshot DashboardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return &snapshot, nil
}

// Set implements SnapshotCache.Set
func (c *RedisCache) Set(ctx context.Context, snapshot *DashboardSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, snapshotKey(snapshot.UserID, snapshot.PathID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot in redis: %w", err)
	}
	return nil
}

// InvalidateUser implements SnapshotCache.InvalidateUser
func (c *RedisCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return c.deleteByPattern(ctx, fmt.Sprintf("dashboard:%s:*", userID))
}

// InvalidateAll implements SnapshotCache.InvalidateAll
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	return c.deleteByPattern(ctx, "dashboard:*")
}

// deleteByPattern removes all keys matching the pattern using SCAN, so
// large keyspaces are walked incrementally instead of blocking the server.
func (c *RedisCache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cached snapshot: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached snapshots: %w", err)
	}
	return nil
}
