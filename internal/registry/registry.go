package registry

import "sync"

// Handle is the send surface of a live connection. Send must never
// block: a backed-up peer drops frames rather than stalling the caller.
type Handle interface {
	// Send queues a frame for delivery and reports whether it was
	// accepted. A false return means the frame was dropped.
	Send(data []byte) bool

	// Close shuts the connection down asynchronously.
	Close()
}

// Registry maps player ids to their live connection handles. It is
// process-local and rebuilt from nothing on restart; a handle cannot be
// serialized or shared across processes. A player with no entry here may
// still be present in the store, connected to another process.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Handle
}

func New() *Registry {
	return &Registry{conns: map[string]Handle{}}
}

// Bind associates a player with a handle, overwriting any prior handle
// without closing it. A reconnect silently supersedes the old
// connection; the superseded session closes its own handle on teardown.
func (r *Registry) Bind(playerID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[playerID] = h
}

// Unbind removes the player's entry, but only if it still points at h.
// A superseded connection tearing down late must not evict its
// successor's binding.
func (r *Registry) Unbind(playerID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[playerID] == h {
		delete(r.conns, playerID)
	}
}

// Resolve returns the player's live handle. A miss is not an error: the
// player either vanished moments ago or is connected to another process.
func (r *Registry) Resolve(playerID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.conns[playerID]
	return h, ok
}

// Len returns the number of locally bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
