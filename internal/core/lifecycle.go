package core

// Lifecycle binds incoming connections to identities and tears them down.
// Per connection the state machine is one-way:
// unauthenticated -> authenticated(username) -> terminated.
type Lifecycle struct {
	presence *Presence
	ledger   *Ledger
}

// NewLifecycle creates a connection lifecycle handler.
func NewLifecycle(presence *Presence, ledger *Ledger) *Lifecycle {
	return &Lifecycle{presence: presence, ledger: ledger}
}

// OnLogin binds the verified identity to the connection, registers presence
// (closing a displaced previous connection for the same username) and replays
// pending friend requests in ledger order.
func (h *Lifecycle) OnLogin(c *Client, username string) {
	c.Bind(username)

	if replaced := h.presence.Register(username, c); replaced != nil {
		replaced.Close()
	}

	for _, from := range h.ledger.Pending(username) {
		c.Send(&Event{Kind: EventFriendRequest, From: from})
	}
}

// OnDisconnect removes the presence entry if the connection was bound to a
// username. It runs for abnormal closes too; the transport defers it.
func (h *Lifecycle) OnDisconnect(c *Client) {
	if username := c.Username(); username != "" {
		h.presence.Unregister(username, c)
	}
	c.Close()
}
