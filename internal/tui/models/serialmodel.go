// Package models holds the Bubble Tea model of the interactive terminal.
package models

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/components"
	"github.com/allbin/serterm/internal/tui/keys"
	"github.com/allbin/serterm/internal/tui/styles"
)

// RefreshInterval is how often the view polls the session.
const RefreshInterval = 100 * time.Millisecond

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// Screen is the active view.
type Screen int

const (
	ScreenTerminal Screen = iota
	ScreenPicker
)

type tickMsg time.Time

type portsMsg struct {
	ports []serterm.PortDescriptor
	err   error
}

type hotplugMsg struct{}

// Options configures a SerialModel.
type Options struct {
	Session *serterm.Session
	// Hotplug delivers a signal whenever device nodes change; nil disables
	// automatic rescans.
	Hotplug <-chan struct{}
	// LineEnding is appended to text sent in ASCII mode.
	LineEnding string
	Line       components.LineSettings
	// AutoConnect opens the initial selection on start.
	AutoConnect bool
}

// SerialModel is the interactive terminal. It only observes the session:
// state and received data are polled on every tick, and user actions are
// turned into Connect, Disconnect and Send calls.
type SerialModel struct {
	session     *serterm.Session
	hotplug     <-chan struct{}
	autoConnect bool

	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	ports     *components.PortTable
	help      help.Model
	keys      keys.ConnectKeys
	picker    keys.PickerKeys

	screen    Screen
	inputMode InputMode
	ready     bool
	width     int
	height    int

	baud      serterm.Baudrate
	status    serterm.Status
	sessionID string
	seen      int
	now       time.Time
}

func NewSerialModel(opts Options) *SerialModel {
	cfg := opts.Session.Config()
	baud := cfg.Baudrate
	if !baud.Valid() {
		baud = serterm.DefaultBaudrate
	}

	m := &SerialModel{
		session:     opts.Session,
		hotplug:     opts.Hotplug,
		autoConnect: opts.AutoConnect && cfg.Port != "",
		terminal:    components.NewTerminal(0, 0), // Will be properly sized by WindowSizeMsg
		statusBar:   components.NewStatusBar(opts.Line),
		input:       components.NewInput(opts.LineEnding),
		ports:       components.NewPortTable(),
		help:        help.New(),
		keys:        keys.NewConnectKeys(),
		picker:      keys.NewPickerKeys(),
		inputMode:   InputModeNormal,
		baud:        baud,
		now:         time.Now(),
	}
	if cfg.Port == "" {
		m.screen = ScreenPicker
	}
	m.status = m.session.Status()
	m.statusBar.SetStatus(m.status)
	return m
}

func (m *SerialModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), m.scanPorts(), m.waitHotplug()}
	if m.autoConnect {
		cmds = append(cmds, func() tea.Msg { return connectMsg{} })
	}
	return tea.Batch(cmds...)
}

type connectMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *SerialModel) scanPorts() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ports, err := session.ListPorts()
		return portsMsg{ports: ports, err: err}
	}
}

func (m *SerialModel) waitHotplug() tea.Cmd {
	if m.hotplug == nil {
		return nil
	}
	ch := m.hotplug
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return hotplugMsg{}
	}
}

// Screen returns the active view.
func (m *SerialModel) Screen() Screen {
	return m.screen
}

// Baudrate returns the rate the next connect will use.
func (m *SerialModel) Baudrate() serterm.Baudrate {
	return m.baud
}

// InputMode returns the vim-like mode.
func (m *SerialModel) InputMode() InputMode {
	return m.inputMode
}

// Records returns the lines currently in the terminal view.
func (m *SerialModel) Records() []components.Record {
	return m.terminal.Records()
}

// Ports returns the last scan result.
func (m *SerialModel) Ports() []serterm.PortDescriptor {
	return m.ports.Ports()
}

func (m *SerialModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.ready = true

	case tickMsg:
		m.now = time.Time(msg)
		m.sync()
		cmds = append(cmds, tick())

	case portsMsg:
		if msg.err != nil {
			m.ports.SetError(msg.err)
		} else {
			m.ports.SetPorts(msg.ports, m.status.Config.Port)
		}

	case hotplugMsg:
		cmds = append(cmds, m.scanPorts(), m.waitHotplug())

	case connectMsg:
		m.connect(m.session.Config().Port)

	case tea.KeyMsg:
		if m.screen == ScreenPicker {
			return m, m.updatePicker(msg)
		}
		if m.inputMode == InputModeInsert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)

	case tea.MouseMsg:
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *SerialModel) updatePicker(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.picker.Quit):
		return tea.Quit
	case key.Matches(msg, m.picker.Select):
		if p, ok := m.ports.Selected(); ok {
			m.connect(p.Path)
		}
		return nil
	case key.Matches(msg, m.picker.BaudNext):
		m.baud = m.baud.Next()
		return nil
	case key.Matches(msg, m.picker.BaudPrev):
		m.baud = m.baud.Prev()
		return nil
	case key.Matches(msg, m.picker.Refresh):
		return m.scanPorts()
	case key.Matches(msg, m.picker.Back):
		m.screen = ScreenTerminal
		return nil
	}
	return m.ports.Update(msg)
}

func (m *SerialModel) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.InsertMode):
		m.inputMode = InputModeInsert
		return m.input.Focus()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()

	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()

	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()

	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.ToggleASCII()

	case key.Matches(msg, m.keys.GotoTop):
		m.terminal.GotoTop()

	case key.Matches(msg, m.keys.GotoBottom):
		m.terminal.GotoBottom()

	case key.Matches(msg, m.keys.ScrollUp):
		m.terminal.ScrollUp()

	case key.Matches(msg, m.keys.ScrollDown):
		m.terminal.ScrollDown()

	case key.Matches(msg, m.keys.Connect):
		port := m.session.Config().Port
		if port == "" {
			m.screen = ScreenPicker
			return m.scanPorts()
		}
		m.connect(port)

	case key.Matches(msg, m.keys.Disconnect):
		m.session.Disconnect()
		m.sync()

	case key.Matches(msg, m.keys.Ports):
		m.screen = ScreenPicker
		return m.scanPorts()

	case key.Matches(msg, m.keys.Refresh):
		return m.scanPorts()

	case key.Matches(msg, m.keys.BaudNext):
		m.baud = m.baud.Next()
		m.noteBaud()

	case key.Matches(msg, m.keys.BaudPrev):
		m.baud = m.baud.Prev()
		m.noteBaud()

	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
	}
	return nil
}

func (m *SerialModel) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.inputMode = InputModeNormal
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter):
		m.send()
		return nil
	case key.Matches(msg, m.keys.HistoryUp):
		m.input.NavigateHistoryUp()
		return nil
	case key.Matches(msg, m.keys.HistoryDown):
		m.input.NavigateHistoryDown()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *SerialModel) connect(port string) {
	m.screen = ScreenTerminal
	cfg := serterm.ConnectionConfig{Port: port, Baudrate: m.baud}
	if err := m.session.Connect(cfg); err != nil {
		m.notice("connect failed: " + serterm.Reason(err))
	} else {
		m.notice("connecting to " + cfg.String())
	}
	m.sync()
}

func (m *SerialModel) send() {
	if m.input.Value() == "" {
		return
	}
	payload, err := m.input.Payload()
	if err != nil {
		m.notice("invalid input: " + err.Error())
		return
	}

	rec := components.Record{Timestamp: time.Now(), Data: payload, IsTX: true}
	if err := m.session.Send(payload); err != nil {
		rec.Status = components.TXRejected
		m.terminal.Append(rec)
		m.notice("not sent: " + err.Error())
	} else {
		m.terminal.Append(rec)
	}
	m.input.Commit()
}

func (m *SerialModel) noteBaud() {
	if m.status.State == serterm.StateConnected || m.status.State == serterm.StateConnecting {
		m.notice(fmt.Sprintf("baud %s applies on the next connect (r)", m.baud))
	}
}

func (m *SerialModel) notice(text string) {
	m.terminal.Append(components.Record{Timestamp: time.Now(), Data: []byte(text), Notice: true})
}

// sync pulls the session status and any newly received data into the view.
func (m *SerialModel) sync() {
	status := m.session.Status()
	log := m.session.Output()

	if status.State != m.status.State {
		switch status.State {
		case serterm.StateConnected:
			m.notice("connected to " + status.Config.String())
		case serterm.StateFailed:
			m.notice("failed: " + status.Reason)
		case serterm.StateDisconnected:
			if m.status.State != serterm.StateDisconnected {
				m.notice("disconnected")
			}
		}
	}

	// A new session starts with a fresh log
	if status.State == serterm.StateConnected && status.SessionID != m.sessionID {
		m.sessionID = status.SessionID
		m.seen = 0
	}
	if log.Count() < m.seen {
		m.seen = 0
	}

	// Entries read while a new session replaced the log would be misaligned;
	// the next tick picks them up.
	entries := log.Entries(m.seen)
	if after := m.session.Status(); after.SessionID == status.SessionID && after.State == status.State {
		m.seen += len(entries)
		m.terminal.Append(components.RecordsFromEntries(entries)...)
	}

	m.status = status
	m.statusBar.SetStatus(status)
}

func (m *SerialModel) layout() {
	if m.width == 0 {
		return
	}
	// Input area height (includes border), status bar and content border
	inputHeight := 3
	statusBarHeight := 1
	borderHeight := 1
	helpHeight := 0
	if m.help.ShowAll {
		helpHeight = lipgloss.Height(m.help.View(m.keys))
	}

	m.terminal.SetSize(m.width, m.height-inputHeight-statusBarHeight-borderHeight-helpHeight)
	m.input.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
	m.ports.SetSize(m.width, m.height-statusBarHeight-3)
}

func (m *SerialModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	statusBar := m.statusBar.View(m.inputMode.String(), m.input.GetSendingMode().String(), m.now.Format("15:04:05"))

	if m.screen == ScreenPicker {
		title := styles.PickerTitleStyle.Render("Select a serial port")
		baud := styles.BaudSelectorStyle.Render(fmt.Sprintf("◀ %s baud ▶", m.baud))
		header := lipgloss.JoinHorizontal(lipgloss.Left, title, baud)
		return lipgloss.JoinVertical(
			lipgloss.Left,
			header,
			m.ports.View(),
			m.help.View(m.picker),
			statusBar,
		)
	}

	parts := []string{
		styles.ContentBorderStyle.Render(m.terminal.View()),
		m.input.ViewWithMode(m.inputMode == InputModeInsert),
	}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	parts = append(parts, statusBar)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
