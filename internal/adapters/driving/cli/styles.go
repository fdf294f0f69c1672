package cli

import "github.com/charmbracelet/lipgloss"

// Colour palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourError   = lipgloss.Color("#F38BA8") // Red
)

// styles contains pre-configured lipgloss styles for terminal output.
type styles struct {
	// Title style for section headers.
	Title lipgloss.Style

	// Muted style for counters and secondary text.
	Muted lipgloss.Style

	// Success style for the closing summary.
	Success lipgloss.Style

	// Error style for failures.
	Error lipgloss.Style
}

func newStyles() *styles {
	return &styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colourPrimary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colourMuted),

		Muted: lipgloss.NewStyle().
			Foreground(colourMuted),

		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(colourSuccess),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(colourError),
	}
}
