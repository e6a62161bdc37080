package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-tally/tally/pkg/store"
)

const latestResultKey = "tally:result:latest"

// ResultCache keeps round results in Redis so read-heavy consumers don't
// hit SQLite for every query. Best-effort: write failures are logged and
// swallowed, reads fall through to the store on a miss.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache wraps an existing Redis client. A non-positive ttl keeps
// entries forever.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) makeKey(roundID string) string {
	return fmt.Sprintf("tally:result:%s", roundID)
}

// Put stores a result and marks it as the latest.
func (c *ResultCache) Put(ctx context.Context, result *store.RoundResult) {
	data, err := json.Marshal(result)
	if err != nil {
		slog.Error("failed to marshal result for cache", "error", err, "roundID", result.RoundID)
		return
	}

	if err := c.client.Set(ctx, c.makeKey(result.RoundID), data, c.ttl).Err(); err != nil {
		slog.Error("failed to cache result", "error", err, "roundID", result.RoundID)
		return
	}
	if err := c.client.Set(ctx, latestResultKey, data, c.ttl).Err(); err != nil {
		slog.Error("failed to cache latest result", "error", err, "roundID", result.RoundID)
	}
}

// Get returns a cached result, or (nil, false) on a miss.
func (c *ResultCache) Get(ctx context.Context, roundID string) (*store.RoundResult, bool) {
	return c.get(ctx, c.makeKey(roundID))
}

// Latest returns the most recently cached result, or (nil, false).
func (c *ResultCache) Latest(ctx context.Context) (*store.RoundResult, bool) {
	return c.get(ctx, latestResultKey)
}

func (c *ResultCache) get(ctx context.Context, key string) (*store.RoundResult, bool) {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed to read cached result", "error", err, "key", key)
		}
		return nil, false
	}

	var result store.RoundResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		slog.Error("failed to unmarshal cached result", "error", err, "key", key)
		return nil, false
	}

	return &result, true
}
