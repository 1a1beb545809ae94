// Package ui is the interactive collection screen: unit/date form,
// live delivery feed, summary footer, and export keybinding.
package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors shared across the screen.
var (
	colorAccent  = lipgloss.Color("#8BC34A")
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	colorError   = lipgloss.Color("#e53935")
	colorWarning = lipgloss.Color("#FFC107")
)

// Styles holds the lipgloss styles for the collection screen.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Status  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Summary lipgloss.Style
	Help    lipgloss.Style
}

// DefaultStyles returns the standard screen styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Label:   lipgloss.NewStyle().Bold(true),
		Status:  lipgloss.NewStyle().Foreground(colorMuted),
		Success: lipgloss.NewStyle().Foreground(colorAccent),
		Error:   lipgloss.NewStyle().Foreground(colorError),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Summary: lipgloss.NewStyle().Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderTop(true),
		Help:    lipgloss.NewStyle().Foreground(colorMuted),
	}
}
