package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// AssignmentsReport generates CSV reports for the reduced support edges of
// a round, one row per voter-to-target edge.
type AssignmentsReport struct {
	store ReportStore
}

// NewAssignmentsReport creates a new AssignmentsReport generator.
func NewAssignmentsReport(s ReportStore) *AssignmentsReport {
	return &AssignmentsReport{store: s}
}

// Generate creates a CSV report for the staked edges of a round.
func (r *AssignmentsReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if params.RoundID == "" {
		return nil, fmt.Errorf("assignments report requires a round id")
	}

	result, err := r.store.GetResult(ctx, params.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result for round %s: %w", params.RoundID, err)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"round_id", "voter", "target", "weight"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for _, a := range result.Assignments {
		for _, e := range a.Edges {
			row := []string{
				result.RoundID,
				a.Who,
				e.Target,
				fmt.Sprintf("%d", e.Weight),
			}
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}
