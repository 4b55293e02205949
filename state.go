package serterm

import "time"

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Status is a point-in-time snapshot of a Session.
type Status struct {
	State     State
	Reason    string // set only in StateFailed
	Err       error  // the error behind Reason
	Config    ConnectionConfig
	SessionID string // set while connecting or connected
	Since     time.Time
	BytesIn   uint64
	BytesOut  uint64
}

func (s Status) String() string {
	if s.State == StateFailed {
		return "Failed(" + s.Reason + ")"
	}
	return s.State.String()
}
