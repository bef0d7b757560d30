package transcript

import (
	"context"
	"fmt"
	"time"

	"quill/agent"
	"quill/config"
)

// Sink is the external display surface. Create is called exactly once per
// turn and returns an opaque handle; every later push goes through Update
// with that handle.
type Sink interface {
	Create(ctx context.Context, body string) (string, error)
	Update(ctx context.Context, handle string, body string) error
}

// TurnStatus records how a turn ended.
type TurnStatus string

const (
	StatusCompleted TurnStatus = "completed"
	StatusFailed    TurnStatus = "failed"
	StatusCancelled TurnStatus = "cancelled"
)

// Assembler folds the event stream of one turn into the element buffer and
// invocation registry, re-rendering to the sink after every visible change.
// It is not safe for concurrent use; one turn has exactly one consumer.
type Assembler struct {
	sink      Sink
	elements  []Element
	registry  *Registry
	rawEvents []agent.Event

	handle    string
	created   bool
	finalized bool
	status    TurnStatus
}

// NewAssembler creates an assembler for a single turn pushing to sink.
func NewAssembler(sink Sink) *Assembler {
	return &Assembler{
		sink:     sink,
		registry: NewRegistry(),
	}
}

// Handle processes one event in arrival order. Protocol anomalies (duplicate
// request ids, results for unknown or already-resolved ids) are logged and
// dropped; they never fail the turn. A sink push error is returned so the
// caller can log it, but the buffer state is already updated and the next
// push carries the full document.
func (a *Assembler) Handle(ctx context.Context, ev agent.Event) error {
	if a.finalized {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[transcript] Dropping %T received after finalization", ev)
		}
		return nil
	}

	a.rawEvents = append(a.rawEvents, ev)

	switch ev := ev.(type) {
	case agent.TextDelta:
		a.elements = append(a.elements, TextElement(ev.Text))
		return a.push(ctx)

	case agent.ToolCallRequested:
		if !a.registry.Add(ev.ID, ev.Name, ev.Arguments) {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[transcript] Duplicate tool call request ignored: %s", ev.ID)
			}
			return nil
		}
		a.elements = append(a.elements, ToolElement(ev.ID))
		return a.push(ctx)

	case agent.ToolCallCompleted:
		if !a.registry.AttachResult(ev.ID, ev.Result) {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[transcript] Tool result for unknown or resolved id ignored: %s", ev.ID)
			}
			return nil
		}
		return a.push(ctx)

	case agent.TurnCompleted:
		return a.Finalize(ctx, StatusCompleted)

	case agent.StreamFailed:
		a.elements = append(a.elements, TextElement(failureNotice(ev.Err)))
		return a.Finalize(ctx, StatusFailed)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[transcript] Unknown event %T ignored", ev)
	}
	return nil
}

// Finalize flushes the last render and seals the turn. It is idempotent and
// is also the cancellation path: whatever partial content exists is pushed,
// never rolled back. An empty turn still performs its one Create call.
func (a *Assembler) Finalize(ctx context.Context, status TurnStatus) error {
	if a.finalized {
		return nil
	}
	a.finalized = true
	a.status = status

	return a.push(ctx)
}

// push renders the current state and sends it to the sink: one Create on the
// first push of the turn, Update on every push after that.
func (a *Assembler) push(ctx context.Context) error {
	body := Render(a.elements, a.registry)

	if !a.created {
		handle, err := a.sink.Create(ctx, body)
		if err != nil {
			return fmt.Errorf("sink create failed: %w", err)
		}
		a.handle = handle
		a.created = true
		return nil
	}

	if err := a.sink.Update(ctx, a.handle, body); err != nil {
		return fmt.Errorf("sink update failed: %w", err)
	}
	return nil
}

// Finalized reports whether a terminal event has been processed.
func (a *Assembler) Finalized() bool {
	return a.finalized
}

// Status returns how the turn ended. Only meaningful once Finalized.
func (a *Assembler) Status() TurnStatus {
	return a.status
}

// FinalText returns the rendered document for the current state.
func (a *Assembler) FinalText() string {
	return Render(a.elements, a.registry)
}

// Entry builds the history entry for this turn.
func (a *Assembler) Entry() TurnEntry {
	return TurnEntry{
		Status:    a.status,
		FinalText: a.FinalText(),
		RawEvents: a.rawEvents,
		Timestamp: time.Now(),
	}
}

func failureNotice(err error) string {
	return fmt.Sprintf("\n\n[Agent stream failed: %v]", err)
}
