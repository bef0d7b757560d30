package transcript

import (
	"fmt"
	"strings"
	"testing"
)

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	h := NewHistory()
	for i := 1; i <= 6; i++ {
		h.Append(TurnEntry{Status: StatusCompleted, FinalText: fmt.Sprintf("turn %d", i)})
	}

	if h.Len() != 5 {
		t.Fatalf("Len = %d, want 5", h.Len())
	}

	window := h.RecentWindow()
	for _, line := range window {
		if strings.Contains(line, "turn 1") {
			t.Errorf("oldest turn should have been evicted: %q", line)
		}
	}
	if !strings.Contains(window[len(window)-1], "turn 6") {
		t.Errorf("newest turn missing from window: %v", window)
	}
}

func TestHistoryRecentWindowBounded(t *testing.T) {
	h := NewHistory()
	for i := 1; i <= 5; i++ {
		h.Append(TurnEntry{Status: StatusCompleted, FinalText: fmt.Sprintf("turn %d", i)})
	}

	window := h.RecentWindow()
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	// Oldest first within the window.
	if !strings.Contains(window[0], "turn 3") || !strings.Contains(window[2], "turn 5") {
		t.Errorf("window order wrong: %v", window)
	}
}

func TestHistoryWindowSmallerThanLimit(t *testing.T) {
	h := NewHistory()
	if got := h.RecentWindow(); len(got) != 0 {
		t.Errorf("empty history should yield empty window, got %v", got)
	}

	h.Append(TurnEntry{Status: StatusCompleted, FinalText: "only"})
	window := h.RecentWindow()
	if len(window) != 1 {
		t.Fatalf("window length = %d, want 1", len(window))
	}
	if window[0] != "Previous exchange 1: only" {
		t.Errorf("window[0] = %q", window[0])
	}
}

func TestHistoryLabelsNonCompletedTurns(t *testing.T) {
	h := NewHistory()
	h.Append(TurnEntry{Status: StatusFailed, FinalText: "broke"})
	h.Append(TurnEntry{Status: StatusCancelled, FinalText: "stopped"})

	window := h.RecentWindow()
	if !strings.Contains(window[0], "(failed)") {
		t.Errorf("failed turn not labeled: %q", window[0])
	}
	if !strings.Contains(window[1], "(cancelled)") {
		t.Errorf("cancelled turn not labeled: %q", window[1])
	}
}

func TestHistoryPreviewTruncation(t *testing.T) {
	h := NewHistory()
	h.Append(TurnEntry{Status: StatusCompleted, FinalText: strings.Repeat("x", 500)})

	window := h.RecentWindow()
	preview := strings.TrimPrefix(window[0], "Previous exchange 1: ")
	if len(preview) > 200 {
		t.Errorf("preview width %d exceeds the cap", len(preview))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("truncated preview should end with ellipsis: %q", preview)
	}
}

func TestHistoryPreviewFlattensNewlines(t *testing.T) {
	h := NewHistory()
	h.Append(TurnEntry{Status: StatusCompleted, FinalText: "line one\nline two\n"})

	window := h.RecentWindow()
	if strings.Contains(window[0], "\n") {
		t.Errorf("preview should be a single line: %q", window[0])
	}
	if !strings.Contains(window[0], "line one line two") {
		t.Errorf("newlines should flatten to spaces: %q", window[0])
	}
}
