package ipc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vaibhav93076/MadelineProto/session"
)

// ErrNotFound is returned when a registry lookup names a session with no
// live client.
var ErrNotFound = errors.New("session not registered")

// Registry is the process-wide map from session identifier to the single
// live proxy client for that session. Construct one at process start and
// pass it to whatever needs session lookup; it has no teardown of its own,
// entries are removed only via Client.Unreference.
type Registry struct {
	mu      sync.RWMutex
	clients map[session.ID]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[session.ID]*Client)}
}

// Register records c as the live client for id. A prior entry for the same
// id is overwritten; last registration wins.
func (r *Registry) Register(id session.ID, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = c
}

// Lookup returns the live client for id.
func (r *Registry) Lookup(id session.ID) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Remove deletes the entry for id if present. Removing an absent id is a
// no-op.
func (r *Registry) Remove(id session.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// removeMatching deletes the entry for id only while it still points at c.
// An instance that was already replaced must not evict its replacement.
func (r *Registry) removeMatching(id session.ID, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[id] == c {
		delete(r.clients, id)
	}
}
