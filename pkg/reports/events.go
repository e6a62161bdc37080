package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// EventsReport generates CSV reports for the recent lifecycle event log.
type EventsReport struct {
	store ReportStore
}

// NewEventsReport creates a new EventsReport generator.
func NewEventsReport(s ReportStore) *EventsReport {
	return &EventsReport{store: s}
}

// Generate creates a CSV report of recent events, newest first.
func (r *EventsReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	events, err := r.store.ReadRecentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"ts_event", "event_id", "event_type", "round_id"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for _, e := range events {
		row := []string{
			e.TsEvent.Format("2006-01-02T15:04:05Z07:00"),
			e.EventID,
			string(e.EventType),
			e.RoundID,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}
