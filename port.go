package serterm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Port represents a serial port connection interface
type Port interface {
	io.ReadWriteCloser
	ReadContext(ctx context.Context, buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	Drain() error
	FlushInput() error
	FlushOutput() error
	Path() string
}

// pollSlice bounds a single poll when waiting on a context.
const pollSlice = 100 * time.Millisecond

// port is the concrete implementation of the Port interface.
// The fd is non-blocking; every wait goes through poll together with a wake
// pipe so that Close can interrupt it.
type port struct {
	mu      sync.RWMutex
	fd      int
	wake    [2]int
	path    string
	config  Config
	closing atomic.Bool
	closed  bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// termiosSpeed converts an integer baud rate to the unix constant
func termiosSpeed(rate int) (uint32, error) {
	switch rate {
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// Open opens a serial port with the given device path and options.
// It never waits for carrier: a device that does not answer fails here
// instead of hanging the caller.
func Open(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	flags := unix.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK | unix.O_CLOEXEC
	if config.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(device, flags, 0)
	if err != nil {
		return nil, openError(device, err)
	}

	// Exclusive mode makes a second open fail with EBUSY
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.ENOTTY) {
			return nil, fmt.Errorf("open %s: %w", device, ErrNotTerminal)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", device, err)
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("configure %s: %w", device, err)
	}

	p := &port{
		fd:     fd,
		path:   device,
		config: config,
	}
	if err := unix.Pipe2(p.wake[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to create wake pipe: %w", err)
	}

	// Drop whatever the driver buffered before we opened
	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)

	return p, nil
}

// openError maps open(2) failures onto the package sentinels.
func openError(device string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return fmt.Errorf("open %s: %w", device, ErrDeviceNotFound)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("open %s: %w", device, ErrPermissionDenied)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("open %s: %w", device, ErrDeviceInUse)
	default:
		return fmt.Errorf("open %s: %w", device, err)
	}
}

// configurePort puts the line into raw mode with the configured framing.
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		if errors.Is(err, unix.ENOTTY) {
			return ErrNotTerminal
		}
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode, no flow control of any kind
	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// Reads are driven by poll, so never let the driver wait
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	speed, err := termiosSpeed(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | speed
	termios.Ispeed = speed
	termios.Ospeed = speed

	if config.DataBits != 8 {
		termios.Cflag &^= unix.CSIZE
		switch config.DataBits {
		case 5:
			termios.Cflag |= unix.CS5
		case 6:
			termios.Cflag |= unix.CS6
		case 7:
			termios.Cflag |= unix.CS7
		}
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

func (p *port) Path() string {
	return p.path
}

// Close wakes any goroutine blocked in Read or Write and releases the device.
func (p *port) Close() error {
	if !p.closing.CompareAndSwap(false, true) {
		return ErrPortClosed
	}
	_, _ = unix.Write(p.wake[1], []byte{0})

	p.mu.Lock()
	defer p.mu.Unlock()

	err := unix.Close(p.fd)
	unix.Close(p.wake[0])
	unix.Close(p.wake[1])
	p.closed = true
	return err
}

// Read waits up to the configured read timeout for data. It returns (0, nil)
// when nothing arrived, which is not an error.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.closing.Load() {
		return 0, ErrPortClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	return p.readOnce(buf, p.config.ReadTimeout)
}

// ReadContext blocks until at least one byte arrives, the device fails or
// ctx is done.
func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.closing.Load() {
		return 0, ErrPortClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := p.readOnce(buf, pollSlice)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

// Write writes all of data, retrying partial writes until the write timeout.
func (p *port) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

// WriteContext is Write bounded additionally by ctx.
func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.closing.Load() {
		return 0, ErrPortClosed
	}

	var deadline time.Time
	if p.config.WriteTimeout > 0 {
		deadline = time.Now().Add(p.config.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		wait := pollSlice
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return written, ErrWriteTimeout
			}
			wait = min(wait, remaining)
		}

		revents, err := p.poll(unix.POLLOUT, wait)
		if err != nil {
			return written, err
		}
		if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return written, fmt.Errorf("write %s: %w", p.path, ErrDeviceGone)
		}
		if revents&unix.POLLOUT == 0 {
			continue
		}

		n, err := unix.Write(p.fd, data[written:])
		if n > 0 {
			written += n
		}
		if err != nil && !temporary(err) {
			return written, p.ioError("write", err)
		}
	}
	return written, nil
}

// readOnce performs at most one poll and one read.
func (p *port) readOnce(buf []byte, wait time.Duration) (int, error) {
	revents, err := p.poll(unix.POLLIN, wait)
	if err != nil {
		return 0, err
	}
	if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		return 0, fmt.Errorf("read %s: %w", p.path, ErrDeviceGone)
	}
	if revents&(unix.POLLIN|unix.POLLHUP) == 0 {
		return 0, nil
	}

	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if temporary(err) && revents&unix.POLLHUP == 0 {
			return 0, nil
		}
		return 0, p.ioError("read", err)
	}
	if n == 0 {
		// Readable but empty means the other end hung up
		return 0, fmt.Errorf("read %s: %w", p.path, ErrDeviceGone)
	}
	return n, nil
}

// poll waits for events on the device or a wake-up from Close. It returns
// the device revents, 0 on timeout.
func (p *port) poll(events int16, wait time.Duration) (int16, error) {
	fds := []unix.PollFd{
		{Fd: int32(p.fd), Events: events},
		{Fd: int32(p.wake[0]), Events: unix.POLLIN},
	}
	ms := int(wait / time.Millisecond)
	if wait < 0 {
		ms = -1
	}

	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("poll %s: %w", p.path, err)
	}
	if fds[1].Revents != 0 {
		return 0, ErrPortClosed
	}
	if n == 0 {
		return 0, nil
	}
	return fds[0].Revents, nil
}

func (p *port) ioError(op string, err error) error {
	switch {
	case errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO),
		errors.Is(err, unix.ENODEV), errors.Is(err, unix.EBADF):
		return fmt.Errorf("%s %s: %w: %w", op, p.path, ErrDeviceGone, err)
	default:
		return fmt.Errorf("%s %s: %w", op, p.path, err)
	}
}

func temporary(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCOFLUSH)
}
