package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Total     int
	Completed int
	Changed   int
	Failed    int
	Finished  bool
	Cancelled bool
	DryRun    bool
}

// Summary renders a textual reconciliation summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Steps: %d/%d completed", s.data.Completed, s.data.Total))
	}
	if s.data.Changed > 0 {
		verb := "changed"
		if s.data.DryRun {
			verb = "would change"
		}
		lines = append(lines, fmt.Sprintf("Resources %s: %d", verb, s.data.Changed))
	}
	if s.data.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failed: %d", s.data.Failed))
	}

	if s.data.Cancelled {
		lines = append(lines, "Reconciliation cancelled")
	} else if s.data.Finished && s.data.Total > 0 {
		switch {
		case s.data.Failed > 0:
			lines = append(lines, "Reconciliation finished with failures")
		case s.data.Completed == s.data.Total:
			lines = append(lines, "Reconciliation finished successfully")
		default:
			lines = append(lines, "Reconciliation finished with pending steps")
		}
	}

	return strings.Join(lines, "\n")
}
