package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// WinnersReport generates CSV reports for the elected set of a round.
type WinnersReport struct {
	store ReportStore
}

// NewWinnersReport creates a new WinnersReport generator.
func NewWinnersReport(s ReportStore) *WinnersReport {
	return &WinnersReport{store: s}
}

// Generate creates a CSV report with one row per winner.
func (r *WinnersReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if params.RoundID == "" {
		return nil, fmt.Errorf("winners report requires a round id")
	}

	result, err := r.store.GetResult(ctx, params.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result for round %s: %w", params.RoundID, err)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"round_id", "candidate", "support"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for _, w := range result.Winners {
		row := []string{
			result.RoundID,
			w.Who,
			fmt.Sprintf("%d", w.Support),
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
