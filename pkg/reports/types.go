package reports

import (
	"context"
	"io"

	"github.com/open-tally/tally/pkg/store"
)

type ReportType string

const (
	ReportTypeWinners     ReportType = "winners"
	ReportTypeAssignments ReportType = "assignments"
	ReportTypeEvents      ReportType = "events"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

type ReportParams struct {
	RoundID string
	Limit   int
}

// ReportStore defines the interface for data access required by reports.
type ReportStore interface {
	GetResult(ctx context.Context, roundID string) (*store.RoundResult, error)
	ReadRecentEvents(ctx context.Context, limit int) ([]*store.Event, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}
