// Package sink provides display surfaces the transcript assembler pushes to:
// a live terminal view and a file-backed document.
package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"quill/config"
)

var (
	dimColor    = lipgloss.Color("7")
	accentColor = lipgloss.Color("12")

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	ruleStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

const (
	defaultWidth = 100
	// minWidth is the narrowest render that still fits the header rule and
	// the markdown renderer's margins.
	minWidth = 20
)

// TerminalSink renders the assembled document to a terminal as it grows.
// Each push repaints the whole document in place: the previous render is
// erased with cursor movement and the new body drawn over it.
type TerminalSink struct {
	mu        sync.Mutex
	w         io.Writer
	width     int
	label     string
	nextID    int
	lastLines int
}

// NewTerminalSink creates a sink writing to w. width bounds the markdown
// render; anything below the usable minimum picks a default.
func NewTerminalSink(w io.Writer, width int, label string) *TerminalSink {
	if width < minWidth {
		width = defaultWidth
	}
	return &TerminalSink{w: w, width: width, label: label}
}

// Create starts a new document region below the current cursor position.
func (s *TerminalSink) Create(ctx context.Context, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	handle := fmt.Sprintf("term-%d", s.nextID)

	header := headerStyle.Render(s.label)
	rule := ruleStyle.Render(strings.Repeat("─", s.width-4))
	if _, err := fmt.Fprintf(s.w, "\n%s\n%s\n", header, rule); err != nil {
		return "", fmt.Errorf("failed to write document header: %w", err)
	}

	s.lastLines = 0
	if err := s.paint(body); err != nil {
		return "", err
	}

	return handle, nil
}

// Update repaints the document with the new body. The handle is accepted for
// interface symmetry; the terminal shows one live document at a time.
func (s *TerminalSink) Update(ctx context.Context, handle, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Erase the previous render and redraw from the same origin.
	if s.lastLines > 0 {
		if _, err := fmt.Fprintf(s.w, "\x1b[%dA\x1b[J", s.lastLines); err != nil {
			return fmt.Errorf("failed to reposition cursor: %w", err)
		}
	}

	return s.paint(body)
}

func (s *TerminalSink) paint(body string) error {
	rendered := RenderMarkdown(body, s.width)
	if _, err := fmt.Fprint(s.w, rendered); err != nil {
		return fmt.Errorf("failed to write document body: %w", err)
	}
	s.lastLines = strings.Count(rendered, "\n")
	return nil
}

// RenderMarkdown renders markdown for terminal display at the given width.
// Autolink is disabled so plain URLs stay plain and the terminal emulator
// handles link detection.
func RenderMarkdown(content string, width int) string {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[sink] Rendering markdown, length: %d chars", len(content))
	}

	defaultExt := markdown.Extensions()
	customExt := defaultExt &^ parser.Autolink
	p := parser.NewWithExtensions(customExt)
	r := markdown.NewRenderer(width-4, 0)
	doc := p.Parse([]byte(content))
	rendered := gomarkdown.Render(doc, r)

	out := string(rendered)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
