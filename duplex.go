package serterm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	readBufferSize   = 4096
	defaultQueueSize = 64
	idleBackoff      = 10 * time.Millisecond
)

// traffic counts bytes moved during one session.
type traffic struct {
	in  atomic.Uint64
	out atomic.Uint64
}

func (t *traffic) reset() {
	t.in.Store(0)
	t.out.Store(0)
}

// link is the duplex I/O channel of a connected session. It owns the port
// from start until release; nothing else touches the handle meanwhile.
type link struct {
	port    Port
	log     *OutputLog
	epoch   uint64 // the log's epoch when this link took it over
	traffic *traffic
	queue   chan outbound

	ctx    context.Context // done on stop or on the first fault
	cancel context.CancelFunc
	done   chan struct{}
	err    error // set before done closes

	releaseOnce sync.Once
}

// outbound is one item for the writer: a payload, or a drain marker when
// drained is set.
type outbound struct {
	data    []byte
	drained chan error
}

// startLink starts the inbound and outbound loops. onFault is called at most
// once, after the port has been released, unless the link was stopped first.
func startLink(p Port, log *OutputLog, epoch uint64, t *traffic, queueSize int, onFault func(*link, error)) *link {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	parent, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(parent)

	l := &link{
		port:    p,
		log:     log,
		epoch:   epoch,
		traffic: t,
		queue:   make(chan outbound, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	// Whatever the driver buffered before the session began is not part of it
	_ = p.FlushInput()

	g.Go(func() error { return l.readLoop(ctx) })
	g.Go(func() error { return l.writeLoop(ctx) })

	go func() {
		err := g.Wait()
		l.release(false)
		l.err = err
		if err != nil && parent.Err() == nil {
			onFault(l, err)
		}
		close(l.done)
	}()
	return l
}

// stop abandons in-flight I/O, including output the driver has not sent
// yet, and releases the handle without waiting for the loops to notice.
func (l *link) stop() {
	l.cancel()
	l.release(true)
}

func (l *link) release(discard bool) {
	l.releaseOnce.Do(func() {
		if discard {
			_ = l.port.FlushOutput()
		}
		_ = l.port.Close()
	})
}

// send queues a payload for the writer. Payloads are written whole and in
// submission order.
func (l *link) send(payload []byte) error {
	p := make([]byte, len(payload))
	copy(p, payload)

	select {
	case <-l.ctx.Done():
		return ErrNotConnected
	case l.queue <- outbound{data: p}:
		return nil
	}
}

// drain waits until every payload queued before it has been written and the
// device has transmitted it.
func (l *link) drain(ctx context.Context) error {
	drained := make(chan error, 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return l.failure()
	case l.queue <- outbound{drained: drained}:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return l.failure()
	case err := <-drained:
		return err
	}
}

// failure is what a link that stopped working reports to callers: the fault
// that broke it, or ErrNotConnected after a plain stop.
func (l *link) failure() error {
	<-l.done
	if l.err != nil {
		return l.err
	}
	return ErrNotConnected
}

func (l *link) readLoop(ctx context.Context) error {
	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		start := time.Now()
		n, err := l.port.Read(buf)
		if n > 0 && ctx.Err() == nil {
			if l.log.appendIn(l.epoch, time.Now(), buf[:n]) {
				l.traffic.in.Add(uint64(n))
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &Error{Kind: ErrIOFault, Op: "read", Port: l.port.Path(), Err: err}
		}
		// A port with a zero read timeout never blocks
		if n == 0 && time.Since(start) < idleBackoff {
			if !pause(ctx, idleBackoff) {
				return nil
			}
		}
	}
}

// pause sleeps for d and reports false if ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (l *link) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-l.queue:
			if item.drained != nil {
				item.drained <- l.drainPort()
				continue
			}
			if err := l.writeAll(ctx, item.data); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// writeAll keeps writing until the payload is out or the port fails. A
// failure after a partial write is reported with the count sent so far.
func (l *link) writeAll(ctx context.Context, payload []byte) error {
	sent := 0
	for sent < len(payload) {
		n, err := l.port.WriteContext(ctx, payload[sent:])
		if n > 0 {
			sent += n
			l.traffic.out.Add(uint64(n))
		}
		if err == nil && n <= 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			return &Error{
				Kind: ErrIOFault,
				Op:   "write",
				Port: l.port.Path(),
				Err:  fmt.Errorf("sent %d of %d bytes: %w", sent, len(payload), err),
			}
		}
	}
	return nil
}

func (l *link) drainPort() error {
	if err := l.port.Drain(); err != nil {
		return &Error{Kind: ErrIOFault, Op: "drain", Port: l.port.Path(), Err: err}
	}
	return nil
}
