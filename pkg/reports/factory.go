package reports

import (
	"fmt"
)

// NewReportGenerator creates a report generator based on the report type.
func NewReportGenerator(reportType ReportType, s ReportStore) (Generator, error) {
	switch reportType {
	case ReportTypeWinners:
		return NewWinnersReport(s), nil
	case ReportTypeAssignments:
		return NewAssignmentsReport(s), nil
	case ReportTypeEvents:
		return NewEventsReport(s), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}
