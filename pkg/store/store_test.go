package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/open-tally/tally/pkg/election"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tally-store-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := NewStore(filepath.Join(tmpDir, "tally.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func testRound(id string) *Round {
	return &Round{
		RoundID:   id,
		Status:    RoundStatusPending,
		CreatedAt: time.Now().UTC(),
		Ballots: Ballots{
			Seats:      2,
			Candidates: []string{"A", "B", "C"},
			Voters: []election.Voter{
				{Who: "v1", Stake: 10, Approvals: []string{"A", "B"}},
				{Who: "v2", Stake: 20, Approvals: []string{"B", "C"}},
			},
		},
	}
}

func TestStoreSchema(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"rounds", "results", "events", "leases"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestRoundRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	round := testRound("round-1")
	if err := s.CreateRound(ctx, round); err != nil {
		t.Fatalf("CreateRound failed: %v", err)
	}

	got, err := s.GetRound(ctx, "round-1")
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if got.Status != RoundStatusPending {
		t.Errorf("status: got %s", got.Status)
	}
	if got.Ballots.Seats != 2 || len(got.Ballots.Candidates) != 3 || len(got.Ballots.Voters) != 2 {
		t.Errorf("ballots mangled: %+v", got.Ballots)
	}
	if got.Ballots.Voters[1].Stake != 20 {
		t.Errorf("voter stake: got %d", got.Ballots.Voters[1].Stake)
	}

	if _, err := s.GetRound(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoundStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRound(ctx, testRound("round-1")); err != nil {
		t.Fatalf("CreateRound failed: %v", err)
	}
	if err := s.UpdateRoundStatus(ctx, "round-1", RoundStatusSolved); err != nil {
		t.Fatalf("UpdateRoundStatus failed: %v", err)
	}

	got, err := s.GetRound(ctx, "round-1")
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if got.Status != RoundStatusSolved {
		t.Errorf("status: got %s, want solved", got.Status)
	}

	if err := s.UpdateRoundStatus(ctx, "missing", RoundStatusSolved); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListRounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"r1", "r2", "r3"} {
		r := testRound(id)
		r.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.CreateRound(ctx, r); err != nil {
			t.Fatalf("CreateRound(%s) failed: %v", id, err)
		}
	}

	rounds, err := s.ListRounds(ctx, 2)
	if err != nil {
		t.Fatalf("ListRounds failed: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	if rounds[0].RoundID != "r3" || rounds[1].RoundID != "r2" {
		t.Errorf("order: got %s, %s", rounds[0].RoundID, rounds[1].RoundID)
	}
}

func TestResultRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRound(ctx, testRound("round-1")); err != nil {
		t.Fatalf("CreateRound failed: %v", err)
	}

	result := &RoundResult{
		RoundID:    "round-1",
		ComputedAt: time.Now().UTC(),
		Winners:    []election.Winner{{Who: "B", Support: 30}},
		Assignments: []election.StakedAssignment{
			{Who: "v1", Edges: []election.StakedEdge{{Target: "B", Weight: 10}}},
			{Who: "v2", Edges: []election.StakedEdge{{Target: "B", Weight: 20}}},
		},
		EdgesBefore: 4,
		EdgesAfter:  2,
	}
	if err := s.SaveResult(ctx, result); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	got, err := s.GetResult(ctx, "round-1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if len(got.Winners) != 1 || got.Winners[0].Who != "B" || got.Winners[0].Support != 30 {
		t.Errorf("winners mangled: %+v", got.Winners)
	}
	if got.EdgesBefore != 4 || got.EdgesAfter != 2 {
		t.Errorf("edge counts mangled: %d/%d", got.EdgesBefore, got.EdgesAfter)
	}

	// Saving again replaces the previous result.
	result.EdgesAfter = 1
	if err := s.SaveResult(ctx, result); err != nil {
		t.Fatalf("second SaveResult failed: %v", err)
	}
	got, err = s.GetResult(ctx, "round-1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if got.EdgesAfter != 1 {
		t.Errorf("result not replaced: %d", got.EdgesAfter)
	}

	if _, err := s.GetResult(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	events := []*Event{
		{EventID: "e1", EventType: EventTypeRoundCreated, TsEvent: base, RoundID: "r1"},
		{EventID: "e2", EventType: EventTypeSolveStarted, TsEvent: base.Add(time.Second), RoundID: "r1"},
		{EventID: "e3", EventType: EventTypeSolveCompleted, TsEvent: base.Add(2 * time.Second), RoundID: "r1",
			Payload: json.RawMessage(`{"winners":2}`)},
	}
	for _, e := range events {
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent(%s) failed: %v", e.EventID, err)
		}
	}

	got, err := s.ReadRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ReadRecentEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].EventID != "e3" || got[1].EventID != "e2" {
		t.Errorf("order: got %s, %s", got[0].EventID, got[1].EventID)
	}
	if string(got[0].Payload) != `{"winners":2}` {
		t.Errorf("payload mangled: %s", got[0].Payload)
	}
}

func TestLeaseLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "leader", "holder-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("initial acquire: ok=%v err=%v", ok, err)
	}

	// Someone else cannot steal a live lease.
	ok, err = s.Acquire(ctx, "leader", "holder-b", time.Minute)
	if err != nil {
		t.Fatalf("competing acquire errored: %v", err)
	}
	if ok {
		t.Error("competing acquire must fail while lease is live")
	}

	// The holder can re-acquire and renew.
	ok, err = s.Acquire(ctx, "leader", "holder-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("re-acquire: ok=%v err=%v", ok, err)
	}
	if err := s.Renew(ctx, "leader", "holder-a", time.Minute); err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if err := s.Renew(ctx, "leader", "holder-b", time.Minute); err == nil {
		t.Error("renew by non-holder must fail")
	}

	lease, err := s.Get(ctx, "leader")
	if err != nil {
		t.Fatalf("get lease failed: %v", err)
	}
	if lease == nil || lease.HolderID != "holder-a" {
		t.Fatalf("lease holder: got %+v", lease)
	}

	if err := s.Release(ctx, "leader", "holder-a"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	lease, err = s.Get(ctx, "leader")
	if err != nil {
		t.Fatalf("get after release failed: %v", err)
	}
	if lease != nil {
		t.Errorf("lease should be gone, got %+v", lease)
	}

	// An expired lease can be taken over.
	if ok, err := s.Acquire(ctx, "leader", "holder-a", -time.Second); err != nil || !ok {
		t.Fatalf("acquire expired: ok=%v err=%v", ok, err)
	}
	ok, err = s.Acquire(ctx, "leader", "holder-b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("takeover of expired lease: ok=%v err=%v", ok, err)
	}
}
