package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"quill/agent"
)

const (
	// historyCapacity bounds how many turns a session remembers.
	historyCapacity = 5
	// recentWindowSize is how many of those are offered as continuity
	// context for the next prompt.
	recentWindowSize = 3
	// previewWidth bounds each preview by display width.
	previewWidth = 200
)

// TurnEntry summarizes one completed turn.
type TurnEntry struct {
	Status    TurnStatus
	FinalText string
	RawEvents []agent.Event
	Timestamp time.Time
}

// History is a bounded FIFO log of recent turns, scoped to one session.
// It gives the agent short continuity context without unbounded growth.
// Not safe for concurrent use; the owning session serializes access.
type History struct {
	entries []TurnEntry
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records a turn, evicting the oldest entry once capacity is
// exceeded.
func (h *History) Append(entry TurnEntry) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > historyCapacity {
		h.entries = h.entries[len(h.entries)-historyCapacity:]
	}
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// RecentWindow returns bounded previews of the most recent turns, oldest
// first, for inclusion in the next prompt. At most recentWindowSize entries;
// no side effects.
func (h *History) RecentWindow() []string {
	start := len(h.entries) - recentWindowSize
	if start < 0 {
		start = 0
	}

	window := make([]string, 0, len(h.entries)-start)
	for i, entry := range h.entries[start:] {
		preview := strings.TrimSpace(entry.FinalText)
		preview = strings.ReplaceAll(preview, "\n", " ")
		preview = runewidth.Truncate(preview, previewWidth, "...")

		label := fmt.Sprintf("Previous exchange %d", i+1)
		if entry.Status != StatusCompleted {
			label = fmt.Sprintf("%s (%s)", label, entry.Status)
		}
		window = append(window, fmt.Sprintf("%s: %s", label, preview))
	}

	return window
}
