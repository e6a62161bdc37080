// Package redis provides Redis-backed collaborators for multi-instance
// deployments: a lease store for leadership and a small result cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-tally/tally/pkg/store"
)

// LeaseStore implements store.LeaseStore on Redis.
type LeaseStore struct {
	client *redis.Client
}

// NewLeaseStore wraps an existing Redis client.
func NewLeaseStore(client *redis.Client) *LeaseStore {
	return &LeaseStore{client: client}
}

func (s *LeaseStore) makeKey(name string) string {
	return fmt.Sprintf("tally:lease:%s", name)
}

// Acquire takes the lease with SETNX, or renews it when holderID already
// holds it.
func (s *LeaseStore) Acquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	key := s.makeKey(name)

	success, err := s.client.SetNX(ctx, key, holderID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if success {
		return true, nil
	}

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existing lease: %w", err)
	}
	if val == holderID {
		return true, s.Renew(ctx, name, holderID, ttl)
	}

	return false, nil
}

// Renew extends the expiry only while holderID still owns the key; the
// check-and-expire must be atomic, hence the Lua script.
func (s *LeaseStore) Renew(ctx context.Context, name, holderID string, ttl time.Duration) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`

	res, err := s.client.Eval(ctx, script, []string{s.makeKey(name)},
		holderID, int64(ttl/time.Millisecond)).Result()
	if err != nil {
		return fmt.Errorf("failed to execute renew script: %w", err)
	}

	success, ok := res.(int64)
	if !ok {
		return fmt.Errorf("unexpected return type from renew script")
	}
	if success != 1 {
		return fmt.Errorf("lease lost or stolen")
	}

	return nil
}

// Release deletes the key only while holderID owns it. Not owning it is
// not an error.
func (s *LeaseStore) Release(ctx context.Context, name, holderID string) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`

	if _, err := s.client.Eval(ctx, script, []string{s.makeKey(name)}, holderID).Result(); err != nil {
		return fmt.Errorf("failed to execute release script: %w", err)
	}

	return nil
}

// Get returns the current lease, or nil when nobody holds it.
func (s *LeaseStore) Get(ctx context.Context, name string) (*store.Lease, error) {
	key := s.makeKey(name)

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lease: %w", err)
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get lease ttl: %w", err)
	}

	return &store.Lease{
		Name:      name,
		HolderID:  val,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}
