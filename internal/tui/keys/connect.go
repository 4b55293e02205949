package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys includes terminal keys plus connection control and sending
type ConnectKeys struct {
	TerminalKeys
	Enter          key.Binding
	ToggleSendMode key.Binding
	HistoryUp      key.Binding
	HistoryDown    key.Binding
	Connect        key.Binding
	Disconnect     key.Binding
	Ports          key.Binding
	Refresh        key.Binding
	BaudNext       key.Binding
	BaudPrev       key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		TerminalKeys: NewTerminalKeys(),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send / connect"),
		),
		ToggleSendMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle send mode"),
		),
		HistoryUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous"),
		),
		HistoryDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next"),
		),
		Connect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Ports: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "ports"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R", "f5"),
			key.WithHelp("R", "rescan ports"),
		),
		BaudNext: key.NewBinding(
			key.WithKeys("]", "right", "l"),
			key.WithHelp("]", "faster"),
		),
		BaudPrev: key.NewBinding(
			key.WithKeys("[", "left"),
			key.WithHelp("[", "slower"),
		),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Connect, k.Disconnect, k.Ports, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.InsertMode, k.Escape, k.Enter, k.ToggleSendMode},
		{k.Connect, k.Disconnect, k.Ports, k.Refresh, k.BaudPrev, k.BaudNext},
		{k.Clear, k.ToggleHex, k.ToggleASCII, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}

// PickerKeys are active while choosing a port.
type PickerKeys struct {
	Select   key.Binding
	Back     key.Binding
	Refresh  key.Binding
	BaudNext key.Binding
	BaudPrev key.Binding
	Quit     key.Binding
}

func NewPickerKeys() PickerKeys {
	c := NewConnectKeys()
	return PickerKeys{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "p"),
			key.WithHelp("esc", "terminal"),
		),
		Refresh:  c.Refresh,
		BaudNext: c.BaudNext,
		BaudPrev: c.BaudPrev,
		Quit:     c.Quit,
	}
}

func (k PickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.BaudPrev, k.BaudNext, k.Refresh, k.Back, k.Quit}
}

func (k PickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
