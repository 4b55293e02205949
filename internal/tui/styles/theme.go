package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serterm"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	// Status styles
	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(Green).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(Overlay0).
				Bold(true)

	StatusConnectingStyle = lipgloss.NewStyle().
				Foreground(Yellow).
				Bold(true)

	StatusFailedStyle = lipgloss.NewStyle().
				Foreground(Red).
				Bold(true)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	// Input styles
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	// Picker styles
	PickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Mauve).
				Padding(0, 1)

	BaudSelectorStyle = lipgloss.NewStyle().
				Foreground(Peach).
				Bold(true).
				Padding(0, 1)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(Surface1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Foreground(Subtext0).
			Italic(true)
)

// StateStyle returns the style used to render a connection state.
func StateStyle(state serterm.State) lipgloss.Style {
	switch state {
	case serterm.StateConnected:
		return StatusConnectedStyle
	case serterm.StateConnecting:
		return StatusConnectingStyle
	case serterm.StateFailed:
		return StatusFailedStyle
	default:
		return StatusDisconnectedStyle
	}
}

// StateIndicator is the single glyph shown next to the port name.
func StateIndicator(state serterm.State) string {
	switch state {
	case serterm.StateConnected:
		return "●"
	case serterm.StateConnecting:
		return "◌"
	case serterm.StateFailed:
		return "✗"
	default:
		return "○"
	}
}
