package serterm

import (
	"strings"
	"sync"
	"time"
)

// Entry is one chunk of bytes received from the device.
type Entry struct {
	Time time.Time
	Data []byte
}

// OutputLog is the append-only record of everything received during the
// current session. Readers get copies, so they may keep them while the log
// keeps growing.
type OutputLog struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	epoch   uint64 // bumped by Reset
}

// NewOutputLog returns an empty log.
func NewOutputLog() *OutputLog {
	return &OutputLog{}
}

// Append records data in arrival order. The slice is copied.
func (l *OutputLog) Append(t time.Time, data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Time: t, Data: chunk})
	l.size += len(chunk)
}

// appendIn is Append for a writer tied to one session. It drops data once
// the log has been reset for a later session and reports whether data was
// recorded.
func (l *OutputLog) appendIn(epoch uint64, t time.Time, data []byte) bool {
	if len(data) == 0 {
		return false
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch != l.epoch {
		return false
	}
	l.entries = append(l.entries, Entry{Time: t, Data: chunk})
	l.size += len(chunk)
	return true
}

// Count returns the number of entries.
func (l *OutputLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Len returns the number of bytes received.
func (l *OutputLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Entries returns the entries starting at index from. Callers polling the log
// pass the count they have already seen.
func (l *OutputLog) Entries(from int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= len(l.entries) {
		return nil
	}
	out := make([]Entry, len(l.entries)-from)
	copy(out, l.entries[from:])
	return out
}

// Bytes returns everything received, concatenated.
func (l *OutputLog) Bytes() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]byte, 0, l.size)
	for _, e := range l.entries {
		out = append(out, e.Data...)
	}
	return out
}

// Text decodes the whole log as UTF-8, replacing invalid sequences. Decoding
// the whole log keeps multi-byte characters split across reads intact.
func (l *OutputLog) Text() string {
	return strings.ToValidUTF8(string(l.Bytes()), "�")
}

// Reset empties the log. Only a newly established session calls it.
func (l *OutputLog) Reset() {
	l.reset()
}

// reset empties the log and returns the epoch of the session that owns it
// from now on.
func (l *OutputLog) reset() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.size = 0
	l.epoch++
	return l.epoch
}
