package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/open-tally/tally/pkg/election"
	"github.com/open-tally/tally/pkg/store"
)

type memStore struct {
	rounds  map[string]*store.Round
	results map[string]*store.RoundResult
	events  []*store.Event
}

func newMemStore() *memStore {
	return &memStore{
		rounds:  make(map[string]*store.Round),
		results: make(map[string]*store.RoundResult),
	}
}

func (m *memStore) GetRound(_ context.Context, roundID string) (*store.Round, error) {
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *memStore) UpdateRoundStatus(_ context.Context, roundID string, status store.RoundStatus) error {
	r, ok := m.rounds[roundID]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memStore) SaveResult(_ context.Context, result *store.RoundResult) error {
	m.results[result.RoundID] = result
	return nil
}

func (m *memStore) AppendEvent(_ context.Context, event *store.Event) error {
	m.events = append(m.events, event)
	return nil
}

type memSink struct {
	results []*store.RoundResult
}

func (s *memSink) Put(_ context.Context, result *store.RoundResult) {
	s.results = append(s.results, result)
}

func (m *memStore) eventTypes() []store.EventType {
	out := make([]store.EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}

func TestRunnerSolvesRound(t *testing.T) {
	st := newMemStore()
	st.rounds["r1"] = &store.Round{
		RoundID:   "r1",
		Status:    store.RoundStatusPending,
		CreatedAt: time.Now().UTC(),
		Ballots: store.Ballots{
			Seats:      2,
			Candidates: []string{"A", "B", "C"},
			Voters: []election.Voter{
				{Who: "v1", Stake: 10, Approvals: []string{"A"}},
				{Who: "v2", Stake: 20, Approvals: []string{"A", "B"}},
				{Who: "v3", Stake: 30, Approvals: []string{"B", "C"}},
			},
		},
	}
	sink := &memSink{}

	result, err := NewRunner(st, sink).Run(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Winners) != 2 {
		t.Errorf("winners: got %d, want 2", len(result.Winners))
	}
	if st.rounds["r1"].Status != store.RoundStatusSolved {
		t.Errorf("round status: got %s, want solved", st.rounds["r1"].Status)
	}
	if st.results["r1"] == nil {
		t.Error("result not persisted")
	}
	if len(sink.results) != 1 {
		t.Errorf("sink received %d results, want 1", len(sink.results))
	}
	if result.EdgesAfter > result.EdgesBefore {
		t.Errorf("reduction grew the edge set: %d -> %d", result.EdgesBefore, result.EdgesAfter)
	}

	types := st.eventTypes()
	if len(types) != 2 ||
		types[0] != store.EventTypeSolveStarted ||
		types[1] != store.EventTypeSolveCompleted {
		t.Errorf("event sequence: got %v", types)
	}
}

func TestRunnerMarksFailedRound(t *testing.T) {
	st := newMemStore()
	st.rounds["r1"] = &store.Round{
		RoundID: "r1",
		Status:  store.RoundStatusPending,
		// No candidates: the solver rejects this.
		Ballots: store.Ballots{Seats: 1},
	}

	_, err := NewRunner(st, nil).Run(context.Background(), "r1")
	if err == nil {
		t.Fatal("expected solve error")
	}
	if st.rounds["r1"].Status != store.RoundStatusFailed {
		t.Errorf("round status: got %s, want failed", st.rounds["r1"].Status)
	}

	types := st.eventTypes()
	if len(types) != 2 || types[1] != store.EventTypeSolveFailed {
		t.Errorf("event sequence: got %v", types)
	}
}

func TestRunnerUnknownRound(t *testing.T) {
	_, err := NewRunner(newMemStore(), nil).Run(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
