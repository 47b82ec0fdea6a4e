package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeLogin         = "login"
	InboundTypeFriendRequest = "friend_request"
	InboundTypeAcceptFriend  = "accept_friend"
	InboundTypeMsg           = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameFriendRequest  = "friend_request"
	EventNameFriendAccepted = "friend_accepted"
	EventNameFriendsUpdate  = "friends_update"
	EventNameMessage        = "message"
)

// LoginData binds the connection to its authenticated identity. The username
// must match the identity carried by the connection's token.
type LoginData struct {
	Username string `json:"username"`
}

// FriendRequestData asks the server to record a friend request to another user.
type FriendRequestData struct {
	To string `json:"to"`
}

// AcceptFriendData accepts a previously received friend request.
type AcceptFriendData struct {
	From string `json:"from"`
}

// MsgData is a direct message from the client.
type MsgData struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventFriendRequest notifies about a new or replayed friend request.
type EventFriendRequest struct {
	From string `json:"from"`
}

// EventFriendAccepted notifies a requester that their request was accepted.
type EventFriendAccepted struct {
	By string `json:"by"`
}

// EventFriendsUpdate delivers a fresh, ordered friends snapshot.
type EventFriendsUpdate struct {
	Friends []string `json:"friends"`
}

// EventMessage is a direct message delivered to an online recipient.
type EventMessage struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
