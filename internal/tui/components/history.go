package components

import "strings"

const maxHistory = 100

// history is a bounded list of sent lines with a cursor for browsing. While
// browsing, the line being edited is kept as a draft and restored when the
// cursor walks past the newest entry.
type history struct {
	entries []string
	cursor  int // len(entries) when not browsing
	draft   string
}

func (h *history) add(line string) {
	defer h.rewind()

	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if over := len(h.entries) - maxHistory; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

func (h *history) rewind() {
	h.cursor = len(h.entries)
	h.draft = ""
}

func (h *history) browsing() bool {
	return h.cursor < len(h.entries)
}

// older steps back, saving current as the draft on the first step. It stops
// at the oldest entry.
func (h *history) older(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if !h.browsing() {
		h.draft = current
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// newer steps forward, ending on the draft.
func (h *history) newer() (string, bool) {
	if !h.browsing() {
		return "", false
	}
	h.cursor++
	if h.browsing() {
		return h.entries[h.cursor], true
	}
	draft := h.draft
	h.draft = ""
	return draft, true
}
