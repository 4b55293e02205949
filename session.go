package serterm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultOpenTimeout bounds how long Connect may stay in StateConnecting.
const DefaultOpenTimeout = 5 * time.Second

// Opener opens a device handle. Open is the default.
type Opener func(path string, opts ...Option) (Port, error)

// LogView is the read-only side of the OutputLog handed to observers.
type LogView interface {
	Count() int
	Len() int
	Entries(from int) []Entry
	Bytes() []byte
	Text() string
}

// Session manages the one serial connection of the terminal: it opens and
// releases the device, runs the duplex link while connected and records
// everything received. All methods are safe for concurrent use and none of
// them waits for the device.
type Session struct {
	opener      Opener
	enumerator  Enumerator
	logger      *slog.Logger
	openTimeout time.Duration
	queueSize   int
	portOpts    []Option

	mu     sync.Mutex
	state  State
	err    error
	config ConnectionConfig
	id     string
	since  time.Time
	gen    uint64 // bumped whenever a pending open must be discarded
	link   *link

	// pending closes once every handle handed out so far has been released
	// or taken over by a link. Each open waits for it before calling opener.
	pending chan struct{}

	output  *OutputLog
	traffic traffic
	updates chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOpener replaces the device opener, mainly for tests.
func WithOpener(o Opener) SessionOption {
	return func(s *Session) { s.opener = o }
}

// WithEnumerator replaces the port enumerator.
func WithEnumerator(e Enumerator) SessionOption {
	return func(s *Session) { s.enumerator = e }
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithOpenTimeout bounds the time spent opening a device.
func WithOpenTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.openTimeout = d }
}

// WithQueueSize sets how many outbound payloads may wait for the writer.
func WithQueueSize(n int) SessionOption {
	return func(s *Session) { s.queueSize = n }
}

// WithConfig sets the initial selection, typically loaded from disk.
func WithConfig(c ConnectionConfig) SessionOption {
	return func(s *Session) { s.config = c }
}

// WithPortOptions adds port options applied after the baud rate.
func WithPortOptions(opts ...Option) SessionOption {
	return func(s *Session) { s.portOpts = append(s.portOpts, opts...) }
}

// New returns a disconnected Session.
func New(opts ...SessionOption) *Session {
	s := &Session{
		opener:      Open,
		enumerator:  NewDevEnumerator(),
		logger:      slog.New(slog.DiscardHandler),
		openTimeout: DefaultOpenTimeout,
		queueSize:   defaultQueueSize,
		config:      DefaultConnectionConfig(),
		output:      NewOutputLog(),
		updates:     make(chan struct{}, 1),
		since:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPorts returns the devices visible right now.
func (s *Session) ListPorts() ([]PortDescriptor, error) {
	ports, err := s.enumerator.ListPorts()
	if err != nil {
		var serr *Error
		if !errors.As(err, &serr) {
			err = &Error{Kind: ErrEnumeration, Op: "list", Err: err}
		}
		s.logger.Warn("port enumeration failed", "error", err)
		return nil, err
	}
	return ports, nil
}

// Connect starts opening cfg.Port and returns without waiting for the
// device. Any existing connection is torn down first. Only an empty port or
// an invalid baud rate is rejected here; the result of the open itself shows
// up later in State.
func (s *Session) Connect(cfg ConnectionConfig) error {
	s.mu.Lock()
	old := s.detachLocked()
	if s.state != StateDisconnected {
		s.setLocked(StateDisconnected, nil)
	}
	s.gen++
	gen := s.gen
	s.config = cfg
	prev, done := s.queueLocked()

	if err := cfg.Validate(); err != nil {
		oerr := &Error{Kind: ErrConnectionOpen, Op: "open", Port: cfg.Port, Err: err}
		s.setLocked(StateFailed, oerr)
		s.mu.Unlock()
		if old != nil {
			old.stop()
		}
		go handOff(prev, done)
		s.logger.Warn("connect rejected", "port", cfg.Port, "error", oerr)
		return oerr
	}

	s.id = uuid.NewString()
	id := s.id
	s.setLocked(StateConnecting, nil)
	s.mu.Unlock()

	if old != nil {
		old.stop()
	}

	s.logger.Info("session connecting", "session", id, "port", cfg.Port, "baud", cfg.Baudrate.Int())
	go s.open(gen, id, cfg, prev, done)
	return nil
}

// queueLocked takes the next turn to hold a device handle. The caller must
// wait for prev before opening and close done once its handle is released
// or owned by a link.
func (s *Session) queueLocked() (prev, done chan struct{}) {
	prev, done = s.pending, make(chan struct{})
	s.pending = done
	return prev, done
}

// handOff passes the turn on once the previous holder is finished.
func handOff(prev, done chan struct{}) {
	if prev != nil {
		<-prev
	}
	close(done)
}

type openResult struct {
	port Port
	err  error
}

func (s *Session) open(gen uint64, id string, cfg ConnectionConfig, prev, done chan struct{}) {
	timer := time.NewTimer(s.openTimeout)
	defer timer.Stop()

	// The device stays exclusive: a superseded or timed-out attempt closes
	// its handle before this one opens
	if prev != nil {
		select {
		case <-prev:
		case <-timer.C:
			go handOff(prev, done)
			s.settle(gen, id, cfg, openResult{err: ErrOpenTimeout})
			return
		}
	}
	if !s.current(gen) {
		close(done)
		s.logger.Debug("skipping superseded open", "session", id, "port", cfg.Port)
		return
	}

	opts := append(cfg.Options(), s.portOpts...)

	ch := make(chan openResult, 1)
	go func() {
		p, err := s.opener(cfg.Port, opts...)
		ch <- openResult{port: p, err: err}
	}()

	select {
	case r := <-ch:
		s.settle(gen, id, cfg, r)
		close(done)
	case <-timer.C:
		go func() {
			if late := <-ch; late.port != nil {
				late.port.Close()
			}
			close(done)
		}()
		s.settle(gen, id, cfg, openResult{err: ErrOpenTimeout})
	}
}

// settle applies the outcome of an open unless a later Connect or a
// Disconnect superseded it, in which case any handle is closed.
func (s *Session) settle(gen uint64, id string, cfg ConnectionConfig, r openResult) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if r.port != nil {
			r.port.Close()
		}
		s.logger.Debug("discarding superseded open", "session", id, "port", cfg.Port)
		return
	}
	if r.err != nil {
		err := &Error{Kind: ErrConnectionOpen, Op: "open", Port: cfg.Port, Err: r.err}
		s.setLocked(StateFailed, err)
		s.mu.Unlock()
		s.logger.Warn("session open failed", "session", id, "port", cfg.Port, "error", err)
		return
	}

	epoch := s.output.reset()
	s.traffic.reset()
	s.link = startLink(r.port, s.output, epoch, &s.traffic, s.queueSize, s.fault)
	s.setLocked(StateConnected, nil)
	s.mu.Unlock()
	s.logger.Info("session connected", "session", id, "port", cfg.Port, "baud", cfg.Baudrate.Int())
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// fault moves a session whose link broke to StateFailed.
func (s *Session) fault(l *link, err error) {
	s.mu.Lock()
	if s.link != l {
		s.mu.Unlock()
		return
	}
	s.link = nil
	id := s.id
	s.setLocked(StateFailed, err)
	s.mu.Unlock()
	s.logger.Warn("session failed", "session", id, "error", err)
}

// Disconnect closes the connection. It is a no-op when there is nothing to
// close: in StateDisconnected, and in StateFailed where the handle is
// already released.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	old := s.detachLocked()
	s.gen++
	id := s.id
	s.setLocked(StateDisconnected, nil)
	var prev, done chan struct{}
	if old != nil {
		prev, done = s.queueLocked()
	}
	s.mu.Unlock()

	if old != nil {
		old.stop()
		go handOff(prev, done)
	}
	s.logger.Info("session disconnected", "session", id)
}

// Close disconnects on shutdown.
func (s *Session) Close() error {
	s.Disconnect()
	return nil
}

// Send queues payload for transmission. It fails with ErrNotConnected unless
// the session is connected. Write failures surface as StateFailed.
func (s *Session) Send(payload []byte) error {
	s.mu.Lock()
	l := s.link
	s.mu.Unlock()

	if l == nil {
		return ErrNotConnected
	}
	if len(payload) == 0 {
		return nil
	}
	return l.send(payload)
}

// Drain blocks until everything sent so far has been written and the device
// has transmitted it. It fails with ErrNotConnected unless the session is
// connected, and with the fault if the link breaks while draining.
func (s *Session) Drain(ctx context.Context) error {
	s.mu.Lock()
	l := s.link
	s.mu.Unlock()

	if l == nil {
		return ErrNotConnected
	}
	return l.drain(ctx)
}

// SendString is Send for text.
func (s *Session) SendString(text string) error {
	return s.Send([]byte(text))
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		Err:       s.err,
		Reason:    Reason(s.err),
		Config:    s.config,
		SessionID: s.id,
		Since:     s.since,
		BytesIn:   s.traffic.in.Load(),
		BytesOut:  s.traffic.out.Load(),
	}
	return st
}

// Config returns the configuration of the last connect attempt, or the
// initial selection if there was none.
func (s *Session) Config() ConnectionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Output returns a read-only view of what the device sent.
func (s *Session) Output() LogView {
	return s.output
}

// Updates signals state changes. Signals coalesce; receivers should read
// Status after each one.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) detachLocked() *link {
	l := s.link
	s.link = nil
	return l
}

func (s *Session) setLocked(state State, err error) {
	s.state = state
	s.err = err
	s.since = time.Now()
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
