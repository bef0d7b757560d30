package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"quill/config"
)

// FileSink writes each assembled document to a markdown file. Every update
// replaces the whole file, so a reader never observes a partially written
// document.
type FileSink struct {
	mu  sync.Mutex
	dir string
}

// NewFileSink creates a sink writing documents under dir.
func NewFileSink(dir string) (*FileSink, error) {
	// 0700 - documents may contain sensitive conversation content
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Create writes the initial body to a fresh file and returns its path as the
// handle.
func (s *FileSink) Create(ctx context.Context, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, fmt.Sprintf("reply-%s.md", uuid.New().String()))
	if err := s.replace(path, body); err != nil {
		return "", err
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[sink] Created document %s", path)
	}
	return path, nil
}

// Update rewrites the document at handle with the new body.
func (s *FileSink) Update(ctx context.Context, handle, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(handle); err != nil {
		return fmt.Errorf("unknown document handle %s: %w", handle, err)
	}

	return s.replace(handle, body)
}

// replace writes body to path via a temp file and rename so the swap is
// atomic on the same filesystem.
func (s *FileSink) replace(path, body string) error {
	tmp, err := os.CreateTemp(s.dir, ".reply-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// 0600 - documents contain conversation content
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace document: %w", err)
	}

	return nil
}
