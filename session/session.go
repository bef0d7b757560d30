// Package session owns the lifecycle of conversations: a Session holds one
// persistent agent connection plus its turn history, and a Manager keys
// sessions by caller-supplied handle with single-flight turn submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"quill/agent"
	"quill/config"
	"quill/prompt"
	"quill/transcript"
)

// State tracks where a session is in its lifecycle. There is no way back to
// StateConnected after StateClosed.
type State int

const (
	StateUninitialized State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrTurnInFlight is the synchronous rejection for submitting while a
	// turn is already running on the same session.
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
	// ErrSessionClosed rejects submissions after shutdown.
	ErrSessionClosed = errors.New("session is closed")
)

// ConnectFunc opens the agent connection for a session. Called lazily on
// the first turn; a failure leaves the session uninitialized so the next
// turn retries.
type ConnectFunc func(ctx context.Context) (agent.Source, error)

// TurnRecord is handed to the persistence hook when a turn ends.
type TurnRecord struct {
	SessionID string
	Handle    string
	TurnID    string
	Prompt    string
	FinalText string
	Status    transcript.TurnStatus
	StartedAt time.Time
	EndedAt   time.Time
}

// Session is one conversation: a lazily created agent connection, a display
// sink, and a bounded history of recent turns.
type Session struct {
	ID     string
	Handle string

	mu        sync.Mutex
	state     State
	connect   ConnectFunc
	source    agent.Source
	sink      transcript.Sink
	history   *transcript.History
	inFlight  bool
	cancel    context.CancelFunc
	done      chan struct{}
	onTurnEnd func(TurnRecord)
}

func New(handle string, sink transcript.Sink, connect ConnectFunc, onTurnEnd func(TurnRecord)) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Handle:    handle,
		connect:   connect,
		sink:      sink,
		history:   transcript.NewHistory(),
		onTurnEnd: onTurnEnd,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartTurn submits a prompt. It is fire-and-forget: progress is observed
// through the sink. Rejections (closed session, turn in flight, connection
// failure) are returned synchronously; everything after a successful submit
// is reported via the rendered document.
func (s *Session) StartTurn(ctx context.Context, userPrompt string, attachments []string) error {
	s.mu.Lock()

	switch {
	case s.state == StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.inFlight:
		s.mu.Unlock()
		return ErrTurnInFlight
	}

	// Claim the turn slot before the slow work so concurrent submits are
	// rejected immediately, then connect and submit without holding the
	// lock. State() and CancelTurn() stay responsive during a slow connect.
	s.inFlight = true
	source := s.source
	window := s.history.RecentWindow()
	s.mu.Unlock()

	// Lazy connect on first use. On failure the session stays
	// uninitialized and the next StartTurn retries.
	if source == nil {
		connected, err := s.connect(ctx)
		if err != nil {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
			return fmt.Errorf("failed to connect session %s: %w", s.Handle, err)
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.inFlight = false
			s.mu.Unlock()
			connected.Close(context.WithoutCancel(ctx))
			return ErrSessionClosed
		}
		s.source = connected
		s.state = StateConnected
		s.mu.Unlock()

		source = connected
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Session] %s: connected", s.Handle)
		}
	}

	fullPrompt := prompt.BuildUserPrompt(userPrompt, attachments, window)

	// The turn outlives the StartTurn call; detach from the caller's
	// cancellation but keep its values.
	turnCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	stream, err := source.Submit(turnCtx, fullPrompt)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.inFlight = false
		// A submit-level failure is a connection fault; drop the source
		// so the next turn reconnects.
		if s.state != StateClosed {
			s.source = nil
			s.state = StateUninitialized
		}
		s.mu.Unlock()
		return fmt.Errorf("failed to submit turn: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.runTurn(turnCtx, stream, userPrompt, done)
	return nil
}

// runTurn is the single consumer of one turn's event stream.
func (s *Session) runTurn(ctx context.Context, stream *agent.Stream, userPrompt string, done chan struct{}) {
	startedAt := time.Now()
	turnID := uuid.NewString()

	asm := transcript.NewAssembler(s.sink)

	for stream.Next() {
		if err := asm.Handle(ctx, stream.Current()); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Session] %s: sink push failed: %v", s.Handle, err)
			}
		}
	}

	// A stream that ended without a terminal event was cancelled (or the
	// producer died). Flush the partial content; never roll it back. The
	// flush uses a detached context because ctx is likely cancelled.
	if !asm.Finalized() {
		flushCtx := context.WithoutCancel(ctx)
		if err := asm.Finalize(flushCtx, transcript.StatusCancelled); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Session] %s: final flush failed: %v", s.Handle, err)
			}
		}
	}

	entry := asm.Entry()

	s.mu.Lock()
	s.history.Append(entry)
	s.inFlight = false
	s.cancel = nil
	s.mu.Unlock()

	if s.onTurnEnd != nil {
		s.onTurnEnd(TurnRecord{
			SessionID: s.ID,
			Handle:    s.Handle,
			TurnID:    turnID,
			Prompt:    userPrompt,
			FinalText: entry.FinalText,
			Status:    entry.Status,
			StartedAt: startedAt,
			EndedAt:   time.Now(),
		})
	}

	close(done)
}

// CancelTurn aborts the in-flight turn, if any. The turn finalizes with its
// partial content and a cancelled history entry.
func (s *Session) CancelTurn() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the in-flight turn ends. Returns immediately when no
// turn is running.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	inFlight := s.inFlight
	s.mu.Unlock()

	if inFlight && done != nil {
		<-done
	}
}

// History returns the session's turn history. The caller must not use it
// concurrently with a running turn.
func (s *Session) History() *transcript.History {
	return s.history
}

// Close cancels any in-flight turn, releases the agent connection and seals
// the session. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.source != nil {
		err = s.source.Close(ctx)
		s.source = nil
	}

	s.state = StateClosed
	s.history = transcript.NewHistory()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Session] %s: closed", s.Handle)
	}

	return err
}
