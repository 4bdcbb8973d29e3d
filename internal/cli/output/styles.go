package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used across commands. All styles
// come from a renderer bound to the output writer, so they degrade to
// plain text automatically on non-terminals.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	// RepoName styles workspace repository names in listings.
	RepoName lipgloss.Style
}

// NewStyles builds the style set on the given lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) Styles {
	return Styles{
		Header1: lr.NewStyle().Bold(true).Underline(true),
		Header2: lr.NewStyle().Bold(true),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("1")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("4")),
		RepoName: lr.NewStyle().Foreground(lipgloss.Color("6")),
	}
}
