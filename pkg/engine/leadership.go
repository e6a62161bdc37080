package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/open-tally/tally/pkg/store"
)

// LeaderElector maintains a leadership lease so a single instance performs
// round computation. The solve pass mutates one shared forest; leadership
// is what serializes those writers across instances.
type LeaderElector struct {
	store     store.LeaseStore
	holderID  string
	leaseName string
	ttl       time.Duration

	onPromote func()
	onDemote  func()

	isLeader bool
	mu       sync.RWMutex

	ticker *time.Ticker
	stopCh chan struct{}
}

// NewLeaderElector creates a LeaderElector. Callbacks may be nil.
func NewLeaderElector(
	leaseStore store.LeaseStore,
	holderID string,
	leaseName string,
	ttl time.Duration,
	onPromote func(),
	onDemote func(),
) *LeaderElector {
	return &LeaderElector{
		store:     leaseStore,
		holderID:  holderID,
		leaseName: leaseName,
		ttl:       ttl,
		onPromote: onPromote,
		onDemote:  onDemote,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background lease loop, attempting at half the TTL.
func (le *LeaderElector) Start(ctx context.Context) {
	le.attempt(ctx)
	le.ticker = time.NewTicker(le.ttl / 2)
	go func() {
		defer le.ticker.Stop()
		for {
			select {
			case <-le.ticker.C:
				le.attempt(ctx)
			case <-le.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	slog.Info("leader elector started", "holderID", le.holderID, "leaseName", le.leaseName)
}

// Stop ends the loop and releases the lease if currently leader.
func (le *LeaderElector) Stop(ctx context.Context) {
	close(le.stopCh)
	le.mu.Lock()
	wasLeader := le.isLeader
	le.isLeader = false
	le.mu.Unlock()

	if wasLeader {
		if err := le.store.Release(ctx, le.leaseName, le.holderID); err != nil {
			slog.Error("failed to release lease on stop", "error", err, "holderID", le.holderID)
		} else {
			slog.Info("lease released on stop", "holderID", le.holderID)
		}
	}
	slog.Info("leader elector stopped", "holderID", le.holderID)
}

// IsLeader returns true while this instance holds the lease.
func (le *LeaderElector) IsLeader() bool {
	le.mu.RLock()
	defer le.mu.RUnlock()
	return le.isLeader
}

// Leader returns the current lease holder, if any.
func (le *LeaderElector) Leader(ctx context.Context) (string, bool, error) {
	lease, err := le.store.Get(ctx, le.leaseName)
	if err != nil {
		return "", false, err
	}
	if lease == nil {
		return "", false, nil
	}
	return lease.HolderID, true, nil
}

func (le *LeaderElector) attempt(ctx context.Context) {
	le.mu.Lock()
	wasLeader := le.isLeader
	le.mu.Unlock()

	var newLeader bool

	if wasLeader {
		if err := le.store.Renew(ctx, le.leaseName, le.holderID, le.ttl); err != nil {
			slog.Warn("failed to renew lease", "error", err, "holderID", le.holderID)
		} else {
			newLeader = true
		}
	} else {
		acquired, err := le.store.Acquire(ctx, le.leaseName, le.holderID, le.ttl)
		if err != nil {
			slog.Warn("failed to acquire lease", "error", err, "holderID", le.holderID)
		} else {
			newLeader = acquired
		}
	}

	le.mu.Lock()
	le.isLeader = newLeader
	le.mu.Unlock()

	if !wasLeader && newLeader {
		if le.onPromote != nil {
			le.onPromote()
		}
		slog.Info("promoted to leader", "holderID", le.holderID, "leaseName", le.leaseName)
	} else if wasLeader && !newLeader {
		if le.onDemote != nil {
			le.onDemote()
		}
		slog.Info("demoted from leader", "holderID", le.holderID, "leaseName", le.leaseName)
	}
}
