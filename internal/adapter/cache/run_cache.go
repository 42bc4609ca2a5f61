package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

const DefaultTTL = 30 * time.Second

func RunKey(runID uint64) string {
	return fmt.Sprintf("escrow:run:%d", runID)
}

// RunCache keeps JSON snapshots of runs in redis. Snapshots are only a read
// path; every state change goes through the repository and drops the key.
type RunCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRunCache(rdb redis.Cmdable, ttl time.Duration) *RunCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RunCache{rdb: rdb, ttl: ttl}
}

func (c *RunCache) Get(ctx context.Context, runID uint64) (*domain.EventRun, error) {
	raw, err := c.rdb.Get(ctx, RunKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run %d from cache: %w", runID, err)
	}

	var run domain.EventRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("failed to decode cached run %d: %w", runID, err)
	}

	return &run, nil
}

func (c *RunCache) Set(ctx context.Context, run *domain.EventRun) error {
	raw, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %d: %w", run.ID, err)
	}

	if err := c.rdb.Set(ctx, RunKey(run.ID), string(raw), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache run %d: %w", run.ID, err)
	}

	return nil
}

func (c *RunCache) Invalidate(ctx context.Context, runID uint64) error {
	return c.rdb.Del(ctx, RunKey(runID)).Err()
}
