// Package archivecache keeps archived snapshots in Redis. Archives never
// change once written, so entries need no invalidation; the TTL only bounds
// memory.
package archivecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
)

const keyPrefix = "revalidation:archive:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(cycleID id.CycleID) string {
	return keyPrefix + cycleID.String()
}

// Get returns sentinel.ErrNotFound on a miss.
func (c *RedisCache) Get(ctx context.Context, cycleID id.CycleID) (*models.Snapshot, error) {
	raw, err := c.client.Get(ctx, key(cycleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archive %s: %w", cycleID, err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		_ = c.client.Del(ctx, key(cycleID)).Err()
		return nil, sentinel.ErrNotFound
	}
	return &snap, nil
}

func (c *RedisCache) Set(ctx context.Context, cycleID id.CycleID, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode archive %s: %w", cycleID, err)
	}
	return c.client.Set(ctx, key(cycleID), raw, c.ttl).Err()
}
