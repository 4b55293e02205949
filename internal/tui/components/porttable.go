package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/styles"
)

const (
	columnKeyPath        = "path"
	columnKeyDescription = "description"
	columnKeyUSB         = "usb"
	columnKeySerial      = "serial"
	columnKeyDescriptor  = "descriptor"
)

// PortTable lists the devices found by the last scan and tracks which one
// is highlighted.
type PortTable struct {
	table  table.Model
	ports  []serterm.PortDescriptor
	err    error
	width  int
	height int
}

func NewPortTable() *PortTable {
	pt := &PortTable{width: 80, height: 10}
	pt.table = pt.build(nil)
	return pt
}

func (pt *PortTable) columns() []table.Column {
	// Path and VID:PID keep their width; description absorbs the rest
	descWidth := pt.width - 20 - 11 - 14 - 8
	if descWidth < 16 {
		descWidth = 16
	}
	return []table.Column{
		table.NewColumn(columnKeyPath, "Port", 20),
		table.NewColumn(columnKeyDescription, "Description", descWidth),
		table.NewColumn(columnKeyUSB, "VID:PID", 11),
		table.NewColumn(columnKeySerial, "Serial", 14),
	}
}

func (pt *PortTable) build(rows []table.Row) table.Model {
	pageSize := pt.height - 4
	if pageSize < 3 {
		pageSize = 3
	}
	return table.New(pt.columns()).
		WithRows(rows).
		Focused(true).
		WithPageSize(pageSize).
		HighlightStyle(styles.HighlightStyle).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(styles.Text)).
		WithBaseStyle(lipgloss.NewStyle().
			BorderForeground(styles.Surface1).
			Foreground(styles.Subtext1).
			Align(lipgloss.Left))
}

func portRow(p serterm.PortDescriptor) table.Row {
	usb := ""
	if p.VendorID != "" || p.ProductID != "" {
		usb = fmt.Sprintf("%s:%s", p.VendorID, p.ProductID)
	}
	return table.NewRow(table.RowData{
		columnKeyPath:        p.Path,
		columnKeyDescription: p.Description,
		columnKeyUSB:         usb,
		columnKeySerial:      p.SerialNumber,
		columnKeyDescriptor:  p,
	})
}

// SetPorts replaces the rows, keeping the highlight on the same path when it
// is still present, otherwise on current.
func (pt *PortTable) SetPorts(ports []serterm.PortDescriptor, current string) {
	keep := current
	if sel, ok := pt.Selected(); ok {
		keep = sel.Path
	}

	pt.ports = ports
	pt.err = nil
	pt.rebuild(keep)
}

// SetError shows a failed scan instead of the rows.
func (pt *PortTable) SetError(err error) {
	pt.err = err
}

func (pt *PortTable) SetSize(width, height int) {
	pt.width = width
	pt.height = height
	keep := ""
	if sel, ok := pt.Selected(); ok {
		keep = sel.Path
	}
	pt.rebuild(keep)
}

func (pt *PortTable) rebuild(highlight string) {
	rows := make([]table.Row, len(pt.ports))
	index := 0
	for i, p := range pt.ports {
		rows[i] = portRow(p)
		if p.Path == highlight {
			index = i
		}
	}
	pt.table = pt.build(rows).WithHighlightedRow(index)
}

func (pt *PortTable) Ports() []serterm.PortDescriptor {
	return pt.ports
}

// Selected returns the highlighted port.
func (pt *PortTable) Selected() (serterm.PortDescriptor, bool) {
	if len(pt.ports) == 0 {
		return serterm.PortDescriptor{}, false
	}
	row := pt.table.HighlightedRow()
	p, ok := row.Data[columnKeyDescriptor].(serterm.PortDescriptor)
	return p, ok
}

func (pt *PortTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	pt.table, cmd = pt.table.Update(msg)
	return cmd
}

func (pt *PortTable) View() string {
	if pt.err != nil {
		return styles.ErrorStyle.Render(serterm.Reason(pt.err))
	}
	if len(pt.ports) == 0 {
		return styles.InfoStyle.Render("No serial ports found. Plug in a device or press R to rescan.")
	}
	return pt.table.View()
}
