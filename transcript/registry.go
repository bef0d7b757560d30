package transcript

import "sync"

// Invocation is one tool call requested by the agent during a turn.
// Arguments and Result are serialized payloads; the transcript layer never
// interprets them.
type Invocation struct {
	ID        string
	Name      string
	Arguments string
	Result    string
	HasResult bool
}

// Registry maps invocation ids to their records for the duration of one turn.
// There are exactly two write paths: create-if-absent and
// attach-result-if-absent. Records are never deleted; a new turn gets a fresh
// Registry.
//
// Reads are safe concurrently with result attachment: records are stored by
// value, so a reader never observes a half-written record.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Invocation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]Invocation),
	}
}

// Add creates a record for id unless one already exists.
// Returns false if the id was already registered (duplicate delivery).
func (r *Registry) Add(id, name, arguments string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return false
	}

	r.records[id] = Invocation{
		ID:        id,
		Name:      name,
		Arguments: arguments,
	}
	return true
}

// AttachResult sets the result for id. The transition happens at most once:
// an unknown id or an id that already holds a result leaves the registry
// unchanged and returns false.
func (r *Registry) AttachResult(id, result string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[id]
	if !exists || rec.HasResult {
		return false
	}

	rec.Result = result
	rec.HasResult = true
	r.records[id] = rec
	return true
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (Invocation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[id]
	return rec, exists
}

// Len returns the number of registered invocations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}
