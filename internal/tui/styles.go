package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary     = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6B7785")
	accent      = lipgloss.Color("#2196F3")
	destructive = lipgloss.Color("#e53935")
)

// Styles groups the lipgloss styles used by the views.
type Styles struct {
	Title      lipgloss.Style
	MenuItem   lipgloss.Style
	MenuActive lipgloss.Style
	User       lipgloss.Style
	Bot        lipgloss.Style
	Muted      lipgloss.Style
	Notice     lipgloss.Style
	Error      lipgloss.Style
	Separator  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(primary).MarginBottom(1),
		MenuItem:   lipgloss.NewStyle().Padding(0, 1).Foreground(muted),
		MenuActive: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#101F38")).Background(primary),
		User:       lipgloss.NewStyle().Bold(true).Foreground(accent),
		Bot:        lipgloss.NewStyle().Bold(true).Foreground(primary),
		Muted:      lipgloss.NewStyle().Foreground(muted),
		Notice:     lipgloss.NewStyle().Italic(true).Foreground(primary),
		Error:      lipgloss.NewStyle().Foreground(destructive),
		Separator:  lipgloss.NewStyle().Foreground(muted),
	}
}
