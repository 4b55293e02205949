package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/styles"
)

// LineSettings describes the framing shown next to the baud rate.
type LineSettings struct {
	DataBits int
	StopBits int
	Parity   serterm.Parity
}

func (l LineSettings) String() string {
	return fmt.Sprintf("%d%s%d", l.DataBits, parityToString(l.Parity), l.StopBits)
}

func parityToString(p serterm.Parity) string {
	switch p {
	case serterm.ParityEven:
		return "E"
	case serterm.ParityOdd:
		return "O"
	default:
		return "N"
	}
}

type StatusBar struct {
	status serterm.Status
	line   LineSettings
	width  int
}

func NewStatusBar(line LineSettings) *StatusBar {
	return &StatusBar{line: line}
}

func (sb *StatusBar) SetStatus(status serterm.Status) {
	sb.status = status
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// Reason returns the failure text shown in the bar, if any.
func (sb *StatusBar) Reason() string {
	if sb.status.State != serterm.StateFailed {
		return ""
	}
	return sb.status.Reason
}

// View renders a single line: mode, port with state, failure reason on the
// left; baud, framing, counters and clock on the right.
func (sb *StatusBar) View(inputMode, sendingMode string, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	// Section 1: Mode indicator (like NORMAL in nvim)
	modeBackground := styles.Blue
	if inputMode == "INSERT" {
		modeBackground = styles.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(modeBackground).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	// Section 2: Port path with connection indicator
	portName := sb.status.Config.Port
	if portName == "" {
		portName = "<no port>"
	}
	port := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(portName)

	stateStyle := styles.StateStyle(sb.status.State)
	state := stateStyle.Render(styles.StateIndicator(sb.status.State) + " " + sb.status.State.String())

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, port, state}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(styles.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	details := fmt.Sprintf("⚡ %s baud %s  ↙ %s  ↗ %s",
		sb.status.Config.Baudrate,
		sb.line,
		humanize.IBytes(sb.status.BytesIn),
		humanize.IBytes(sb.status.BytesOut))
	connectionDetails := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render(details)

	clock := lipgloss.NewStyle().
		Foreground(styles.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, divider, connectionDetails, divider, clock)

	// The failure reason takes whatever room is left
	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	var middle string
	if reason := sb.Reason(); reason != "" && spacerWidth > 4 {
		middle = styles.ErrorStyle.
			MaxWidth(spacerWidth).
			Render(truncate(reason, spacerWidth))
	}
	if pad := spacerWidth - lipgloss.Width(middle); pad > 0 {
		middle += lipgloss.NewStyle().Width(pad).Render("")
	}

	statusBarStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, middle, rightSide))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
