package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := fmt.Sprintf("esxistate • %s", m.title())
	if m.dryRun {
		title += " (dry-run)"
	}
	sections = append(sections, titleStyle.Render(title))

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	listComp := components.NewStepList(m.order, m.steps)
	entries := listComp.Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"))
		sections = append(sections, renderStepEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Changed:   m.changed,
		Failed:    m.failed,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		DryRun:    m.dryRun,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderStepEntries(entries []components.StepEntry) string {
	var lines []string
	for _, entry := range entries {
		res := entry.Result
		icon := StatusIcon(res.Status)
		line := fmt.Sprintf(" %s %s", icon, entry.ID)
		if comment := stepComment(res); comment != "" {
			line = fmt.Sprintf("%s - %s", line, comment)
		}
		if res.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// stepComment prefers the reconciliation comment since it carries the
// user-facing wording, including remote fault text on failures.
func stepComment(res model.StepResult) string {
	if res.Reconciliation != nil && strings.TrimSpace(res.Reconciliation.Comment) != "" {
		return res.Reconciliation.Comment
	}
	return strings.TrimSpace(res.Message)
}

func (m Model) title() string {
	if m.plan != nil && strings.TrimSpace(m.plan.Name) != "" {
		return m.plan.Name
	}
	return "Reconciliation"
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	case model.StatusWouldCreate:
		return previewStyle.Render("✱")
	case model.StatusWouldUpdate:
		return previewStyle.Render("↻")
	default:
		return pendingStyle.Render("…")
	}
}
