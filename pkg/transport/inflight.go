package transport

import (
	"context"
	"sync"
)

// InFlightRegistry maps the ids of streaming responses that are still being
// written to the cancel functions of their serving contexts, so that
// DELETE /v1/responses/{id} can stop a stream early.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]inflightEntry
}

type inflightEntry struct {
	token  uint64
	cancel context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[string]inflightEntry),
	}
}

// Register records cancel under id and returns a function that removes this
// registration. Agents may reuse run ids; a later registration under the
// same id replaces the earlier one, and the earlier release becomes a no-op.
func (r *InFlightRegistry) Register(id string, cancel context.CancelFunc) (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	token := r.seq
	r.entries[id] = inflightEntry{token: token, cancel: cancel}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if e, ok := r.entries[id]; ok && e.token == token {
			delete(r.entries, id)
		}
	}
}

// Cancel cancels an in-flight response by calling its cancel function.
// Returns true if the response was found, false if the ID is not streaming
// (already finished or never existed).
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.cancel()
	return true
}

// Len returns the number of registered streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
