package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxRecords bounds what the view keeps; the session log itself is not
// trimmed.
const maxRecords = 5000

// Terminal shows received data interleaved with the local TX echo.
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	records   []Record
	lines     []string
	follow    bool
}

func NewTerminal(width, height int) *Terminal {
	vp := viewport.New(width, height)
	return &Terminal{
		viewport:  vp,
		formatter: NewDataFormatter(true, true), // Default: show both hex and ASCII
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.render()
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

// Append adds records in order.
func (t *Terminal) Append(records ...Record) {
	if len(records) == 0 {
		return
	}
	t.records = append(t.records, records...)
	for _, r := range records {
		t.lines = append(t.lines, t.formatter.FormatRecord(r))
	}
	if over := len(t.records) - maxRecords; over > 0 {
		t.records = t.records[over:]
		t.lines = t.lines[over:]
	}
	t.render()
}

// Records returns what is currently shown.
func (t *Terminal) Records() []Record {
	return t.records
}

func (t *Terminal) Clear() {
	t.records = nil
	t.lines = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.reformat()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.reformat()
}

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

func (t *Terminal) GotoTop() {
	t.follow = false
	t.viewport.GotoTop()
}

// GotoBottom jumps to the newest line and keeps following new data.
func (t *Terminal) GotoBottom() {
	t.follow = true
	t.viewport.GotoBottom()
}

func (t *Terminal) ScrollUp() {
	t.follow = false
	t.viewport.HalfViewUp()
}

func (t *Terminal) ScrollDown() {
	t.viewport.HalfViewDown()
	if t.viewport.AtBottom() {
		t.follow = true
	}
}

func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) reformat() {
	t.lines = t.formatter.FormatRecords(t.records)
	t.render()
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Only pass certain message types to viewport to prevent it from consuming our key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
