package agent

import "context"

// Stream is a pull iterator over the events of one turn.
// Usage:
//
//	stream, err := source.Submit(ctx, prompt)
//	for stream.Next() {
//	    handle(stream.Current())
//	}
//
// Every stream ends with exactly one terminal event (TurnCompleted or
// StreamFailed) before Next returns false.
type Stream struct {
	events  chan Event
	current Event
	done    bool
}

func NewStream() *Stream {
	return &Stream{
		// Small buffer so a slow consumer does not immediately stall the
		// producer between events.
		events: make(chan Event, 16),
	}
}

// Next advances to the next event. Returns false once the stream is
// exhausted.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	ev, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	s.current = ev
	return true
}

// Current returns the event most recently produced by Next.
func (s *Stream) Current() Event {
	return s.current
}

// Emit delivers an event to the consumer, giving up if the turn context is
// cancelled so producers never block forever on an abandoned stream.
func (s *Stream) Emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close ends the stream. The producer must have emitted a terminal event
// first unless the context was cancelled.
func (s *Stream) Close() {
	close(s.events)
}
