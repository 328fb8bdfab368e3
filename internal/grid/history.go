package grid

import (
	"github.com/rpattn/gridsync/internal/domain"
)

// DefaultHistoryLimit bounds the undo/redo log to the most recent commands.
const DefaultHistoryLimit = 10

// History is a bounded, linear undo/redo log of user-initiated mutations,
// independent of network state. The cursor delimits the undoable prefix from
// the redoable suffix; commands are immutable once recorded.
type History struct {
	commands []domain.Command
	cursor   int
	limit    int
}

// NewHistory creates an empty history bounded to limit entries. A
// non-positive limit falls back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{cursor: -1, limit: limit}
}

// Record appends a command, discarding any redo tail past the cursor. Once
// the bound is exceeded the oldest entry is evicted and the cursor shifts
// down with it.
func (h *History) Record(cmd domain.Command) {
	h.commands = append(h.commands[:h.cursor+1], cmd)
	if len(h.commands) > h.limit {
		h.commands = h.commands[1:]
	}
	h.cursor = len(h.commands) - 1
}

// Undo returns the command at the cursor and moves the cursor back. The
// caller applies the command's inverse effect and re-triggers persistence.
func (h *History) Undo() (domain.Command, bool) {
	if h.cursor < 0 {
		return nil, false
	}
	cmd := h.commands[h.cursor]
	h.cursor--
	return cmd, true
}

// Redo advances the cursor and returns the command it now points at. The
// caller applies the command's forward effect.
func (h *History) Redo() (domain.Command, bool) {
	if h.cursor >= len(h.commands)-1 {
		return nil, false
	}
	h.cursor++
	return h.commands[h.cursor], true
}

// CanUndo reports whether the cursor points at a valid entry.
func (h *History) CanUndo() bool {
	return h.cursor >= 0
}

// CanRedo reports whether an entry exists past the cursor.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.commands)-1
}

// Len returns the number of recorded commands.
func (h *History) Len() int {
	return len(h.commands)
}
