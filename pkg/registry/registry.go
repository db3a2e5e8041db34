// Package registry tracks in-flight requests by a deterministic identifier
// so a later caller can cancel them knowing only the verb and URL.
package registry

import (
	"context"
	"sync"
)

// IdentifierFor computes the deterministic identifier of a request.
// Two requests with the same method and URL share the identifier,
// and with it the cancellation scope.
func IdentifierFor(method, url string) string {
	return method + " " + url
}

type entry struct {
	token  uint64
	cancel context.CancelFunc
}

// Registry maps request identifiers to the cancellation handle of the
// current in-flight transport call. Safe for concurrent use.
//
// At most one live entry exists per identifier: registering an identifier
// again replaces the previous entry, so cancellation always targets the
// most recent dispatch. The replaced request keeps running, it only loses
// cancellation reachability.
type Registry struct {
	mu        sync.Mutex
	lastToken uint64
	entries   map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register stores the cancellation handle for the identifier,
// replacing any previous entry. The returned token identifies this
// registration in a later Deregister call.
func (r *Registry) Register(id string, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastToken++
	r.entries[id] = entry{token: r.lastToken, cancel: cancel}
	return r.lastToken
}

// Cancel cancels the live entry for the identifier, if any.
// It returns true when an entry was found and cancelled.
// Cancelling an unknown or already completed identifier is a no-op.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[id]
	if !found {
		return false
	}
	e.cancel()
	delete(r.entries, id)
	return true
}

// CancelAll cancels every live entry and returns the number of cancelled requests.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	for id, e := range r.entries {
		e.cancel()
		delete(r.entries, id)
	}
	return n
}

// Deregister removes the entry for the identifier, but only when it still
// belongs to the given registration token. A completing request must not
// remove the entry of a newer dispatch that replaced it.
func (r *Registry) Deregister(id string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, found := r.entries[id]; found && e.token == token {
		delete(r.entries, id)
	}
}

// Live reports whether a live entry exists for the identifier.
func (r *Registry) Live(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.entries[id]
	return found
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
