package serterm

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by a Session wraps exactly one of these.
var (
	ErrEnumeration    = errors.New("port enumeration failed")
	ErrConnectionOpen = errors.New("connection open failed")
	ErrIOFault        = errors.New("io fault")
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrDeviceGone       = errors.New("serial device disconnected")
	ErrNotTerminal      = errors.New("not a serial device")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrWriteTimeout     = errors.New("write operation timed out")

	// Session errors
	ErrEmptyPort       = errors.New("no port selected")
	ErrNotConnected    = errors.New("session is not connected")
	ErrOpenTimeout     = errors.New("timed out opening serial device")
	ErrUnknownBaudrate = errors.New("unknown baudrate")
)

// Error describes a failure of one session operation. Kind is one of
// ErrEnumeration, ErrConnectionOpen or ErrIOFault and Err is the cause.
type Error struct {
	Kind error
	Op   string
	Port string
	Err  error
}

func (e *Error) Error() string {
	var target string
	switch {
	case e.Op != "" && e.Port != "":
		target = e.Op + " " + e.Port
	case e.Op != "":
		target = e.Op
	default:
		target = e.Port
	}
	if target == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, target, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Reason is the human-readable text shown for a failed session.
func (e *Error) Reason() string {
	return e.Error()
}

// Reason returns the human-readable reason carried by err, or "" for nil.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
