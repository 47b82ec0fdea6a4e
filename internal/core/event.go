package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventFriendRequest notifies a user about a new or replayed friend request.
	EventFriendRequest EventKind = iota
	// EventFriendAccepted notifies a requester that their request was accepted.
	EventFriendAccepted
	// EventFriendsUpdate delivers a fresh friends-list snapshot after a change.
	EventFriendsUpdate
	// EventMessage delivers a direct message to an online recipient.
	EventMessage
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	From    string     // requester, accepter, or message sender
	Content string     // message body for EventMessage
	Friends []string   // ordered snapshot for EventFriendsUpdate
	Error   *CoreError // non-nil for EventError
}
