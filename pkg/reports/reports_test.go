package reports

import (
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/open-tally/tally/pkg/election"
	"github.com/open-tally/tally/pkg/store"
)

type mockReportStore struct {
	results map[string]*store.RoundResult
	events  []*store.Event
}

func (m *mockReportStore) GetResult(ctx context.Context, roundID string) (*store.RoundResult, error) {
	if r, ok := m.results[roundID]; ok {
		return r, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockReportStore) ReadRecentEvents(ctx context.Context, limit int) ([]*store.Event, error) {
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return m.events[:limit], nil
}

func testResult() *store.RoundResult {
	return &store.RoundResult{
		RoundID:    "r-1",
		ComputedAt: time.Now(),
		Winners: []election.Winner{
			{Who: "B", Support: 39},
			{Who: "A", Support: 21},
		},
		Assignments: []election.StakedAssignment{
			{Who: "v1", Edges: []election.StakedEdge{{Target: "A", Weight: 10}}},
			{Who: "v2", Edges: []election.StakedEdge{
				{Target: "A", Weight: 11},
				{Target: "B", Weight: 9},
			}},
		},
		EdgesBefore: 4,
		EdgesAfter:  3,
	}
}

func TestWinnersReport(t *testing.T) {
	ms := &mockReportStore{results: map[string]*store.RoundResult{"r-1": testResult()}}

	gen, err := NewReportGenerator(ReportTypeWinners, ms)
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	reader, err := gen.Generate(context.Background(), ReportParams{RoundID: "r-1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}
	if records[0][1] != "candidate" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	if records[1][1] != "B" || records[1][2] != "39" {
		t.Errorf("Unexpected first row: %v", records[1])
	}
}

func TestWinnersReport_MissingRound(t *testing.T) {
	ms := &mockReportStore{results: map[string]*store.RoundResult{}}
	gen := NewWinnersReport(ms)

	if _, err := gen.Generate(context.Background(), ReportParams{RoundID: "nope"}); err == nil {
		t.Error("Expected error for missing round")
	}
	if _, err := gen.Generate(context.Background(), ReportParams{}); err == nil {
		t.Error("Expected error for empty round id")
	}
}

func TestAssignmentsReport(t *testing.T) {
	ms := &mockReportStore{results: map[string]*store.RoundResult{"r-1": testResult()}}
	gen := NewAssignmentsReport(ms)

	reader, err := gen.Generate(context.Background(), ReportParams{RoundID: "r-1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	// Header plus one row per staked edge.
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}
	if records[2][1] != "v2" || records[2][2] != "A" || records[2][3] != "11" {
		t.Errorf("Unexpected edge row: %v", records[2])
	}
}

func TestEventsReport(t *testing.T) {
	now := time.Now()
	ms := &mockReportStore{
		events: []*store.Event{
			{EventID: "evt-2", EventType: store.EventTypeSolveCompleted, TsEvent: now, RoundID: "r-1"},
			{EventID: "evt-1", EventType: store.EventTypeSolveStarted, TsEvent: now.Add(-time.Second), RoundID: "r-1"},
		},
	}
	gen := NewEventsReport(ms)

	reader, err := gen.Generate(context.Background(), ReportParams{Limit: 10})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[1][1] != "evt-2" || records[1][2] != string(store.EventTypeSolveCompleted) {
		t.Errorf("Unexpected first event row: %v", records[1])
	}
}

func TestNewReportGenerator_Unknown(t *testing.T) {
	if _, err := NewReportGenerator(ReportType("bogus"), &mockReportStore{}); err == nil {
		t.Error("Expected error for unknown report type")
	}
}
