package tui

import "github.com/charmbracelet/lipgloss"

// ANSI-256 palette for the reconciliation view. Preview states (dry-run
// would_create/would_update) get their own color so a dry run is visually
// distinct from a mutating one.
const (
	colorTitle   = lipgloss.Color("81")
	colorSection = lipgloss.Color("75")
	colorOK      = lipgloss.Color("42")
	colorActive  = lipgloss.Color("220")
	colorFailed  = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("245")
	colorPreview = lipgloss.Color("141")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSection).MarginTop(1)
	summaryStyle = lipgloss.NewStyle().MarginTop(1)

	successStyle = lipgloss.NewStyle().Foreground(colorOK)
	runningStyle = lipgloss.NewStyle().Foreground(colorActive)
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFailed)
	skippedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	pendingStyle = lipgloss.NewStyle().Foreground(colorMuted).Faint(true)
	previewStyle = lipgloss.NewStyle().Foreground(colorPreview)
)
