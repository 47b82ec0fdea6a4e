package core

import "sync"

// Presence is the in-memory mapping from username to the live connection
// handle. It is the single source of truth for "is X online, and which
// connection". At most one connection per username; a re-login overwrites.
type Presence struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewPresence creates an empty presence registry.
func NewPresence() *Presence {
	return &Presence{
		clients: make(map[string]*Client),
	}
}

// Register binds username to the client, overwriting any prior entry
// (idempotent re-login, last login wins). Returns the displaced handle so
// the caller can close it, or nil.
func (p *Presence) Register(username string, c *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	replaced := p.clients[username]
	p.clients[username] = c
	if replaced == c {
		return nil
	}
	return replaced
}

// Lookup resolves username to its live connection, if any.
func (p *Presence) Lookup(username string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[username]
	return c, ok
}

// Unregister removes the entry for username. When c is non-nil the entry is
// removed only if it still points at c; a stale disconnect arriving after a
// re-login must not evict the fresh connection. No-op when absent.
func (p *Presence) Unregister(username string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current, ok := p.clients[username]
	if !ok {
		return
	}
	if c != nil && current != c {
		return
	}
	delete(p.clients, username)
}

// Online returns the usernames with a live connection, in no particular order.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.clients))
	for username := range p.clients {
		names = append(names, username)
	}
	return names
}

// Len returns the number of live connections.
func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}
