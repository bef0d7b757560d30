package session

import (
	"context"
	"fmt"
	"sync"

	"quill/agent"
	"quill/config"
	"quill/transcript"
)

// Options wires the collaborators sessions are built from. NewSink creates
// the display sink for a handle; Connect opens an agent connection (called
// lazily per session); OnTurnEnd is the optional persistence hook.
type Options struct {
	NewSink   func(handle string) transcript.Sink
	Connect   func(ctx context.Context) (agent.Source, error)
	OnTurnEnd func(TurnRecord)
}

// Manager keys sessions by caller-supplied handle. Each handle owns its own
// connection, registry state and history; nothing is shared across handles.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	return &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for handle, creating it on first use.
func (m *Manager) Get(handle string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[handle]; ok {
		return s
	}

	s := New(handle, m.opts.NewSink(handle), m.opts.Connect, m.opts.OnTurnEnd)
	m.sessions[handle] = s

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Session] Created session %s for handle '%s'", s.ID, handle)
	}
	return s
}

// StartTurn submits a prompt on the session for handle, creating the
// session on first use.
func (m *Manager) StartTurn(ctx context.Context, handle, userPrompt string, attachments []string) error {
	return m.Get(handle).StartTurn(ctx, userPrompt, attachments)
}

// Shutdown closes one session and forgets its handle.
func (m *Manager) Shutdown(ctx context.Context, handle string) error {
	m.mu.Lock()
	s, ok := m.sessions[handle]
	delete(m.sessions, handle)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if err := s.Close(ctx); err != nil {
		return fmt.Errorf("failed to close session %s: %w", handle, err)
	}
	return nil
}

// ShutdownAll closes every session. Used at process exit.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
