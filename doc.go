// Package serterm is the core of a serial-port terminal: it finds serial
// devices, opens one at a chosen baud rate and runs a full-duplex session
// over it.
//
// # Sessions
//
// A Session owns at most one open device. Connect returns immediately and the
// open happens in the background; callers observe the outcome through State,
// Status or the Updates channel:
//
//	s := serterm.New(serterm.WithLogger(logger))
//	defer s.Close()
//
//	if err := s.Connect(serterm.ConnectionConfig{
//	    Port:     "/dev/ttyUSB0",
//	    Baudrate: serterm.Baud115200,
//	}); err != nil {
//	    // empty port or unknown baud rate
//	}
//
//	for range s.Updates() {
//	    if st := s.Status(); st.State != serterm.StateConnecting {
//	        break
//	    }
//	}
//
//	err := s.SendString("AT\r\n")
//
// The state machine has four states. Connect moves to StateConnecting and
// then to StateConnected or StateFailed. A read or write fault while connected
// releases the device and moves to StateFailed with a reason such as
// "io fault: read /dev/ttyUSB0: serial device disconnected". Disconnect moves
// a connecting or connected session back to StateDisconnected and is a no-op
// otherwise.
//
// # Received data
//
// Everything the device sends is appended to the session's OutputLog with the
// time it arrived. The log survives Disconnect and failures and is emptied
// only when the next connection is established:
//
//	log := s.Output()
//	seen := 0
//	for _, e := range log.Entries(seen) {
//	    seen++
//	    fmt.Printf("%s %q\n", e.Time.Format(time.TimeOnly), e.Data)
//	}
//
// # Port discovery
//
//	ports, err := serterm.ListPorts()
//	for _, p := range ports {
//	    fmt.Println(p.Path, p.Description, p.VendorID, p.ProductID)
//	}
//
// # Baud rates
//
// Baudrate is a closed set from 1200 to 921600. Baudrates lists them in
// ascending order, and ParseBaudrate and BaudrateOrDefault convert stored text
// back into a member.
//
// # Device access
//
// Open gives direct access to a device without a Session. The port uses raw
// termios mode with a non-blocking descriptor, so Read returns (0, nil) when
// nothing arrived within the read timeout and ErrDeviceGone once the device
// is unplugged:
//
//	port, err := serterm.Open("/dev/ttyUSB0",
//	    serterm.WithBaudRate(9600),
//	    serterm.WithParity(serterm.ParityEven),
//	)
//
// # Errors
//
// Session failures are *Error values whose Kind is ErrEnumeration,
// ErrConnectionOpen or ErrIOFault. errors.Is matches both the kind and the
// underlying cause:
//
//	if errors.Is(err, serterm.ErrConnectionOpen) && errors.Is(err, serterm.ErrPermissionDenied) {
//	    // add the user to the dialout group
//	}
//
// # Platform Support
//
// Linux only (x86_64 and ARM).
package serterm
