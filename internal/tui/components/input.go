package components

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serterm/internal/tui/styles"
)

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	switch s {
	case SendingModeHex:
		return "HEX"
	default:
		return "ASCII"
	}
}

const (
	asciiPlaceholder = "Type message and press Enter to send..."
	hexPlaceholder   = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
)

// Input is the send line: a text field with an ASCII or hex mode and a
// history of what was sent.
type Input struct {
	textInput   textinput.Model
	sendingMode SendingMode
	lineEnding  string // appended to ASCII payloads
	history     history
	width       int
}

func NewInput(lineEnding string) *Input {
	ti := textinput.New()
	ti.Placeholder = asciiPlaceholder
	ti.CharLimit = 1024
	ti.Prompt = "" // We handle prompt styling separately

	return &Input{
		textInput:   ti,
		sendingMode: SendingModeASCII,
		lineEnding:  lineEnding,
	}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border, padding, prompt and the space after it
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) ToggleSendingMode() {
	switch i.sendingMode {
	case SendingModeASCII:
		i.sendingMode = SendingModeHex
		i.textInput.Placeholder = hexPlaceholder
	case SendingModeHex:
		i.sendingMode = SendingModeASCII
		i.textInput.Placeholder = asciiPlaceholder
	}
}

func (i *Input) GetSendingMode() SendingMode {
	return i.sendingMode
}

// Payload converts the current value into the bytes to transmit.
func (i *Input) Payload() ([]byte, error) {
	value := i.textInput.Value()
	if i.sendingMode == SendingModeHex {
		return ParseHex(value)
	}
	if value == "" {
		return nil, errors.New("empty input")
	}
	return []byte(value + i.lineEnding), nil
}

// Commit records the current value in the history and clears the field.
func (i *Input) Commit() {
	i.AddToHistory(i.textInput.Value())
	i.textInput.SetValue("")
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) ViewWithMode(isInsertMode bool) string {
	// Clean prompt symbols with foreground colors only
	promptSymbol, promptColor := ">", styles.Green
	if i.sendingMode == SendingModeHex {
		promptSymbol, promptColor = "#", styles.Yellow
	}
	styledPrompt := lipgloss.NewStyle().
		Foreground(promptColor).
		Bold(true).
		Render(promptSymbol)

	var inputContent string
	if isInsertMode {
		inputContent = lipgloss.JoinHorizontal(lipgloss.Left, styledPrompt, " ", i.textInput.View())
	} else {
		instruction := lipgloss.NewStyle().
			Foreground(styles.Overlay0).
			Render("Press 'i' to enter insert mode")
		inputContent = lipgloss.JoinHorizontal(lipgloss.Left, styledPrompt, " ", instruction)
	}

	inputStyle := styles.InputStyle.
		Width(max(i.width-4, 10)).
		AlignHorizontal(lipgloss.Left)
	if isInsertMode {
		inputStyle = inputStyle.BorderForeground(styles.Green)
	}

	return inputStyle.Render(inputContent)
}

// AddToHistory records a sent line. Blank lines and repeats of the last
// line are skipped.
func (i *Input) AddToHistory(line string) {
	i.history.add(line)
}

func (i *Input) History() []string {
	return i.history.entries
}

func (i *Input) NavigateHistoryUp() {
	if line, ok := i.history.older(i.textInput.Value()); ok {
		i.textInput.SetValue(line)
	}
}

func (i *Input) NavigateHistoryDown() {
	if line, ok := i.history.newer(); ok {
		i.textInput.SetValue(line)
	}
}

// ParseHex converts hex strings to bytes. Supports both:
// - Space-separated: "48 65 6C 6C 6F"
// - Continuous: "48656C6C6F"
func ParseHex(hexStr string) ([]byte, error) {
	cleanHex := strings.Join(strings.Fields(hexStr), "")
	if len(cleanHex) == 0 {
		return nil, errors.New("empty input")
	}

	// Must be even number of hex digits to form complete bytes
	if len(cleanHex)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(cleanHex))
	}

	out := make([]byte, 0, len(cleanHex)/2)
	for i := 0; i < len(cleanHex); i += 2 {
		pair := cleanHex[i : i+2]
		b, err := strconv.ParseUint(pair, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s'", pair)
		}
		out = append(out, byte(b))
	}
	return out, nil
}
