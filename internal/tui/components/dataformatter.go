package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/styles"
)

// TXStatus tracks a locally echoed payload.
type TXStatus int

const (
	TXQueued TXStatus = iota
	TXRejected
)

// Record is one line of the terminal: a chunk received from the device, a
// payload the user sent, or a local notice.
type Record struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    TXStatus
	Notice    bool
}

// RecordsFromEntries converts received log entries into terminal records.
func RecordsFromEntries(entries []serterm.Entry) []Record {
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = Record{Timestamp: e.Time, Data: e.Data}
	}
	return records
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) FormatRecord(r Record) string {
	timestamp := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Render(fmt.Sprintf("[%s]", r.Timestamp.Format("15:04:05.000")))

	if r.Notice {
		return fmt.Sprintf("%s %s", timestamp, styles.InfoStyle.Render(string(r.Data)))
	}

	var indicator string
	if r.IsTX {
		color, text := styles.Peach, "↗ TX"
		if r.Status == TXRejected {
			color, text = styles.Red, "↗ TX ✗"
		}
		indicator = lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
	} else {
		indicator = lipgloss.NewStyle().Foreground(styles.Sky).Bold(true).Render("↙ RX")
	}

	return fmt.Sprintf("%s %s: %s", timestamp, indicator, df.formatData(r.Data))
}

func (df *DataFormatter) formatData(data []byte) string {
	var parts []string

	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+PrintableASCII(data))
	}

	// If both are disabled, show raw bytes count
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(data)))
	}
	return strings.Join(parts, "  ")
}

func (df *DataFormatter) FormatRecords(records []Record) []string {
	formatted := make([]string, len(records))
	for i, r := range records {
		formatted[i] = df.FormatRecord(r)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

// PrintableASCII replaces anything outside printable ASCII with dots so
// device output cannot inject terminal control sequences.
func PrintableASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
