// Package engine orchestrates round processing: it loads a round's
// ballots, runs the sequential Phragmén solve, reduces the support graph,
// and persists the outcome. It also owns leadership election so only one
// instance ever writes a round's result.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/open-tally/tally/pkg/election"
	"github.com/open-tally/tally/pkg/reduce"
	"github.com/open-tally/tally/pkg/store"
)

// RoundStore is the persistence surface the runner needs.
type RoundStore interface {
	GetRound(ctx context.Context, roundID string) (*store.Round, error)
	UpdateRoundStatus(ctx context.Context, roundID string, status store.RoundStatus) error
	SaveResult(ctx context.Context, result *store.RoundResult) error
	AppendEvent(ctx context.Context, event *store.Event) error
}

// ResultSink receives solved results for best-effort fan-out, e.g. the
// Redis cache.
type ResultSink interface {
	Put(ctx context.Context, result *store.RoundResult)
}

type multiSink []ResultSink

func (m multiSink) Put(ctx context.Context, result *store.RoundResult) {
	for _, s := range m {
		s.Put(ctx, result)
	}
}

// CombineSinks fans a result out to several sinks. Nil sinks are dropped;
// the result is nil when none remain.
func CombineSinks(sinks ...ResultSink) ResultSink {
	var live multiSink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	if len(live) == 1 {
		return live[0]
	}
	return live
}

// Runner executes the solve and reduce pass for rounds.
type Runner struct {
	store RoundStore
	sink  ResultSink
}

// NewRunner creates a Runner. sink may be nil.
func NewRunner(st RoundStore, sink ResultSink) *Runner {
	return &Runner{store: st, sink: sink}
}

// Run solves one round end to end and returns the persisted result.
// The round moves pending -> solving -> solved (or failed), with lifecycle
// events appended at each step.
func (r *Runner) Run(ctx context.Context, roundID string) (*store.RoundResult, error) {
	round, err := r.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load round %s: %w", roundID, err)
	}

	if err := r.store.UpdateRoundStatus(ctx, roundID, store.RoundStatusSolving); err != nil {
		return nil, fmt.Errorf("failed to mark round solving: %w", err)
	}
	r.appendEvent(ctx, roundID, store.EventTypeSolveStarted, nil)

	started := time.Now()
	result, err := r.solve(round)
	if err != nil {
		TallyRoundsTotal.WithLabelValues(string(store.RoundStatusFailed)).Inc()
		r.appendEvent(ctx, roundID, store.EventTypeSolveFailed,
			map[string]any{"error": err.Error()})
		if statusErr := r.store.UpdateRoundStatus(ctx, roundID, store.RoundStatusFailed); statusErr != nil {
			slog.Error("failed to mark round failed", "error", statusErr, "roundID", roundID)
		}
		return nil, fmt.Errorf("solve failed for round %s: %w", roundID, err)
	}
	TallySolveDuration.Observe(time.Since(started).Seconds())

	if err := r.store.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	if err := r.store.UpdateRoundStatus(ctx, roundID, store.RoundStatusSolved); err != nil {
		return nil, fmt.Errorf("failed to mark round solved: %w", err)
	}

	r.appendEvent(ctx, roundID, store.EventTypeSolveCompleted, map[string]any{
		"winners":      len(result.Winners),
		"edges_before": result.EdgesBefore,
		"edges_after":  result.EdgesAfter,
	})

	TallyRoundsTotal.WithLabelValues(string(store.RoundStatusSolved)).Inc()
	TallyWinnerSupport.Reset()
	for _, w := range result.Winners {
		TallyWinnerSupport.WithLabelValues(w.Who).Set(float64(w.Support))
	}
	TallySupportEdges.WithLabelValues("before").Set(float64(result.EdgesBefore))
	TallySupportEdges.WithLabelValues("after").Set(float64(result.EdgesAfter))

	if r.sink != nil {
		r.sink.Put(ctx, result)
	}

	slog.Info("round solved", "roundID", roundID,
		"winners", len(result.Winners),
		"edgesBefore", result.EdgesBefore, "edgesAfter", result.EdgesAfter,
		"duration", time.Since(started))

	return result, nil
}

func (r *Runner) solve(round *store.Round) (*store.RoundResult, error) {
	b := round.Ballots
	res, err := election.Solve(b.Seats, b.Candidates, b.Voters)
	if err != nil {
		return nil, err
	}

	before := election.EdgeCount(res.Assignments)
	reduced := reduce.Reduce(res.Assignments)
	after := election.EdgeCount(reduced)

	return &store.RoundResult{
		RoundID:     round.RoundID,
		ComputedAt:  time.Now().UTC(),
		Winners:     res.Winners,
		Assignments: reduced,
		EdgesBefore: before,
		EdgesAfter:  after,
	}, nil
}

func (r *Runner) appendEvent(ctx context.Context, roundID string, eventType store.EventType, payload map[string]any) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			slog.Error("failed to marshal event payload", "error", err, "eventType", eventType)
		} else {
			raw = data
		}
	}

	err := r.store.AppendEvent(ctx, &store.Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		TsEvent:   time.Now().UTC(),
		RoundID:   roundID,
		Payload:   raw,
	})
	if err != nil {
		slog.Error("failed to append event", "error", err, "eventType", eventType, "roundID", roundID)
	}
}
