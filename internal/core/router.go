package core

// Router forwards direct messages to the recipient's live connection.
// Delivery is at-most-once and best-effort: an offline recipient means the
// message is silently dropped, never an error. Content policy (size limits,
// rate limits) belongs to the transport boundary, not here.
type Router struct {
	presence *Presence
}

// NewRouter creates a router backed by the given presence registry.
func NewRouter(presence *Presence) *Router {
	return &Router{presence: presence}
}

// DeliverMessage forwards {from, content} verbatim to the recipient if they
// are online. Returns true when the event was handed to a live connection.
func (r *Router) DeliverMessage(from, to, content string) bool {
	c, ok := r.presence.Lookup(to)
	if !ok {
		return false
	}
	return c.Send(&Event{
		Kind:    EventMessage,
		From:    from,
		Content: content,
	})
}
