package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esxistate/esxistate/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case StepStartMsg:
		m.ensureStep(msg.ID)
		step := m.steps[msg.ID]
		step.Status = model.StatusRunning
		m.steps[msg.ID] = step
		return m, nil
	case StepCompleteMsg:
		id := msg.Result.StepID
		if id == "" {
			return m, nil
		}
		m.ensureStep(id)
		existing := m.steps[id]
		previouslyCompleted := isTerminal(existing.Status)
		m.steps[id] = msg.Result
		if !previouslyCompleted {
			m.completed++
			if msg.Result.Status == model.StatusWouldCreate || msg.Result.Status == model.StatusWouldUpdate {
				m.changed++
			} else if rec := msg.Result.Reconciliation; rec != nil && len(rec.Changes) > 0 {
				m.changed++
			}
			if msg.Result.Status == model.StatusFailed {
				m.failed++
			}
			m.markFinishedIfComplete()
		}
		if msg.Result.Status == model.StatusFailed {
			m.finished = true
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, nil
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
