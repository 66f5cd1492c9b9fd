// Package ticket implements request/response correlation over the deck's
// otherwise asynchronous byte stream. Each outstanding command holds a
// single-byte ticket; the reply frame echoes it back.
package ticket

import (
	"errors"
	"sync"
)

const space = 256

var ErrExhausted = errors.New("ticket: all correlation ids pending")

// Result delivers a reply payload or a terminal error to the waiting caller.
type Result struct {
	Payload []byte
	Err     error
}

type pendingEntry struct {
	registered bool
	ch         chan<- Result
}

// Registry assigns tickets round-robin over the 0-255 space and resolves
// incoming replies against them. Shared between the sender side (Allocate,
// Register) and the receive loop (Resolve), so all state sits behind one lock.
type Registry struct {
	mu      sync.Mutex
	pending map[byte]pendingEntry
	last    byte
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[byte]pendingEntry)}
}

// Allocate reserves the next free ticket, skipping values still pending.
// Fails with ErrExhausted when all 256 are outstanding.
func (r *Registry) Allocate() (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 1; i <= space; i++ {
		t := r.last + byte(i)
		if _, busy := r.pending[t]; busy {
			continue
		}
		r.pending[t] = pendingEntry{}
		r.last = t
		return t, nil
	}
	return 0, ErrExhausted
}

// Register attaches the completion channel for an allocated ticket. The
// channel must have capacity for one Result; sends never block.
func (r *Registry) Register(t byte, ch chan<- Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[t] = pendingEntry{registered: true, ch: ch}
}

// Resolve completes the pending request holding the ticket and frees it.
// Returns false when no request is pending, which the caller treats as an
// unmatched reply (non-fatal; the command may have timed out already).
func (r *Registry) Resolve(t byte, payload []byte) bool {
	r.mu.Lock()
	entry, ok := r.pending[t]
	if ok {
		delete(r.pending, t)
	}
	r.mu.Unlock()

	if !ok || !entry.registered {
		return false
	}
	entry.ch <- Result{Payload: payload}
	return true
}

// Expire frees a ticket without delivering a result. Used on send failure
// and timeout; a late reply then shows up as unmatched.
func (r *Registry) Expire(t byte) {
	r.mu.Lock()
	delete(r.pending, t)
	r.mu.Unlock()
}

// ExpireAll fails every outstanding request with reason. Invoked when the
// transport disconnects.
func (r *Registry) ExpireAll(reason error) {
	r.mu.Lock()
	entries := make([]pendingEntry, 0, len(r.pending))
	for t, entry := range r.pending {
		delete(r.pending, t)
		entries = append(entries, entry)
	}
	r.mu.Unlock()

	for _, entry := range entries {
		if entry.registered {
			entry.ch <- Result{Err: reason}
		}
	}
}

// Pending returns the count of outstanding tickets.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
