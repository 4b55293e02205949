// Package hotplug reports serial devices appearing and disappearing in the
// device directory.
package hotplug

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher coalesces device node events into change signals. A burst of
// events, such as a USB adapter enumerating, yields a single signal.
type Watcher struct {
	dir      string
	match    func(name string) bool
	debounce time.Duration
	logger   *slog.Logger

	fsWatcher *fsnotify.Watcher
	changes   chan struct{}
	cancel    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithMatch restricts signals to device names accepted by match.
func WithMatch(match func(name string) bool) Option {
	return func(w *Watcher) { w.match = match }
}

// WithDebounce sets the quiet period after the last event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New starts watching dir.
func New(dir string, opts ...Option) (*Watcher, error) {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsW.Add(dir); err != nil {
		fsW.Close()
		return nil, err
	}

	w := &Watcher{
		dir:       dir,
		match:     func(string) bool { return true },
		debounce:  defaultDebounce,
		logger:    slog.New(slog.DiscardHandler),
		fsWatcher: fsW,
		changes:   make(chan struct{}, 1),
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.watchLoop()
	return w, nil
}

// Changes delivers one signal per settled burst of device changes. Signals
// coalesce when the receiver is slow.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.cancel)
		err = w.fsWatcher.Close()
		<-w.done
	})
	return err
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop() {
	defer close(w.done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.cancel:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.match(filepath.Base(event.Name)) {
				continue
			}
			w.logger.Debug("device node changed", "path", event.Name, "op", event.Op.String())

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.notify)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("device watch error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case <-w.cancel:
	case w.changes <- struct{}{}:
	default:
	}
}
