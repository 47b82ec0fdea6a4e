package core

import "sync"

// Client is a live connection handle as seen by the core layer. Transport
// code owns the socket; the core only pushes events into the buffered
// Events channel.
type Client struct {
	ID string

	mu       sync.Mutex
	events   chan *Event
	username string
	closed   bool
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		events: make(chan *Event, 16),
	}
}

// Events exposes the outbound event stream consumed by the transport's
// write loop. The channel is closed when the client is closed.
func (c *Client) Events() <-chan *Event {
	return c.events
}

// Send queues an event without blocking. Returns false when the client is
// closed or the consumer is too slow and the event was dropped.
func (c *Client) Send(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Bind records the authenticated username for this connection's lifetime.
func (c *Client) Bind(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// Username returns the bound identity, or "" while unauthenticated.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Close terminates the event stream. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}
