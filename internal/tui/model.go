package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/engine"
	"github.com/esxistate/esxistate/internal/model"
)

// StepStartMsg indicates a step has started executing.
type StepStartMsg struct {
	ID   string
	Time time.Time
}

// StepCompleteMsg reports that a step has finished execution.
type StepCompleteMsg struct {
	Result model.StepResult
}

type tickMsg struct{}

// Model contains the Bubbletea state for the reconciliation TUI.
type Model struct {
	plan           *config.Plan
	execution      *engine.ExecutionPlan
	steps          map[string]model.StepResult
	order          []string
	total          int
	completed      int
	changed        int
	failed         int
	dryRun         bool
	finished       bool
	cancelled      bool
	nonInteractive bool
}

// NewModel constructs a new TUI model for the given plan.
func NewModel(plan *config.Plan, execution *engine.ExecutionPlan, dryRun, nonInteractive bool) Model {
	m := Model{
		plan:           plan,
		execution:      execution,
		steps:          make(map[string]model.StepResult),
		order:          make([]string, 0),
		dryRun:         dryRun,
		nonInteractive: nonInteractive,
	}

	if execution != nil {
		for _, level := range execution.Levels {
			for _, id := range level.StepIDs {
				if _, exists := m.steps[id]; !exists {
					m.steps[id] = model.StepResult{StepID: id, Status: model.StatusPending}
					m.order = append(m.order, id)
					m.total++
				}
			}
		}
	}

	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalSteps returns the total number of steps tracked by the model.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of completed steps.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the reconciliation has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// IsCancelled reports whether the user interrupted the run.
func (m Model) IsCancelled() bool {
	return m.cancelled
}

func (m *Model) ensureStep(id string) {
	if id == "" {
		return
	}
	if _, exists := m.steps[id]; !exists {
		m.steps[id] = model.StepResult{StepID: id, Status: model.StatusPending}
		m.order = append(m.order, id)
		m.total++
	}
}

func (m *Model) markFinishedIfComplete() {
	if m.total > 0 && m.completed >= m.total {
		m.finished = true
	}
}

func isTerminal(status string) bool {
	switch status {
	case model.StatusSuccess, model.StatusSkipped, model.StatusFailed,
		model.StatusWouldCreate, model.StatusWouldUpdate:
		return true
	}
	return false
}
