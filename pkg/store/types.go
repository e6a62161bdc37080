package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/open-tally/tally/pkg/election"
)

// EventType represents the kind of round lifecycle event.
type EventType string

const (
	EventTypeRoundCreated   EventType = "round_created"
	EventTypeSolveStarted   EventType = "solve_started"
	EventTypeSolveCompleted EventType = "solve_completed"
	EventTypeSolveFailed    EventType = "solve_failed"
	EventTypeReduceApplied  EventType = "reduce_applied"
	EventTypeLeaderChanged  EventType = "leader_changed"
)

// RoundStatus is the lifecycle state of a round.
type RoundStatus string

const (
	RoundStatusPending RoundStatus = "pending"
	RoundStatusSolving RoundStatus = "solving"
	RoundStatusSolved  RoundStatus = "solved"
	RoundStatusFailed  RoundStatus = "failed"
)

// Ballots is the immutable input snapshot of one election round.
type Ballots struct {
	Seats      int              `json:"seats"`
	Candidates []string         `json:"candidates"`
	Voters     []election.Voter `json:"voters"`
}

// Round is a stored election round.
type Round struct {
	RoundID   string      `json:"round_id"`
	Status    RoundStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Ballots   Ballots     `json:"ballots"`
}

// RoundResult is the solved and reduced outcome of a round.
type RoundResult struct {
	RoundID     string                      `json:"round_id"`
	ComputedAt  time.Time                   `json:"computed_at"`
	Winners     []election.Winner           `json:"winners"`
	Assignments []election.StakedAssignment `json:"assignments"`
	EdgesBefore int                         `json:"edges_before"`
	EdgesAfter  int                         `json:"edges_after"`
}

// Event is one entry in the append-only round lifecycle log.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	TsEvent   time.Time       `json:"ts_event"`
	RoundID   string          `json:"round_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Lease represents a distributed leadership claim.
type Lease struct {
	Name      string    `json:"name"`
	HolderID  string    `json:"holder_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Version   int64     `json:"version"`
}

// LeaseStore is the interface leadership election runs against. Both the
// SQLite store and the Redis store implement it.
type LeaseStore interface {
	// Acquire tries to take the lease, or renews it when holderID already
	// holds it. Returns true on success.
	Acquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error)

	// Renew extends a lease held by holderID. Errors when the lease was
	// lost or stolen.
	Renew(ctx context.Context, name, holderID string, ttl time.Duration) error

	// Release gives the lease up if holderID holds it.
	Release(ctx context.Context, name, holderID string) error

	// Get returns the current lease, or nil when nobody holds it.
	Get(ctx context.Context, name string) (*Lease, error)
}
