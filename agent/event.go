// Package agent defines the event vocabulary spoken between an agent runtime
// and the transcript layer, and provides runtime-backed event sources for
// Anthropic, OpenAI and Ollama.
//
// A Source owns one persistent conversation with an agent runtime. Each
// Submit produces a Stream of events for one turn: text deltas interleaved
// with tool call requests and results, ended by exactly one terminal event
// (TurnCompleted or StreamFailed). Consumers never inspect runtime message
// types; the closed Event vocabulary is produced here, at the boundary.
package agent

// Event is one protocol event within a turn. The set of implementations is
// closed: TextDelta, ToolCallRequested, ToolCallCompleted, TurnCompleted and
// StreamFailed.
type Event interface {
	event()
}

// TextDelta is a fragment of assistant-authored text, additive in arrival
// order.
type TextDelta struct {
	Text string
}

// ToolCallRequested announces a tool invocation. Arguments is the serialized
// input payload, passed through opaque.
type ToolCallRequested struct {
	ID        string
	Name      string
	Arguments string
}

// ToolCallCompleted carries the serialized result for an earlier request,
// correlated by ID.
type ToolCallCompleted struct {
	ID     string
	Result string
}

// TurnCompleted signals the normal end of a turn. No events follow it.
type TurnCompleted struct{}

// StreamFailed signals that the runtime connection failed mid-turn. It is a
// terminal event like TurnCompleted.
type StreamFailed struct {
	Err error
}

func (TextDelta) event()         {}
func (ToolCallRequested) event() {}
func (ToolCallCompleted) event() {}
func (TurnCompleted) event()     {}
func (StreamFailed) event()      {}
