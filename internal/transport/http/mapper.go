package http

import (
	"errors"

	"github.com/okarpov/driftchat-server/internal/core"
	"github.com/okarpov/driftchat-server/internal/proto"
	"github.com/okarpov/driftchat-server/internal/service/relationship"
)

// outboundFromEvent converts a core event into its wire representation.
func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventFriendRequest:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameFriendRequest,
			Data:  proto.EventFriendRequest{From: ev.From},
		}
	case core.EventFriendAccepted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameFriendAccepted,
			Data:  proto.EventFriendAccepted{By: ev.From},
		}
	case core.EventFriendsUpdate:
		friends := ev.Friends
		if friends == nil {
			friends = []string{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameFriendsUpdate,
			Data:  proto.EventFriendsUpdate{Friends: friends},
		}
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  proto.EventMessage{From: ev.From, Content: ev.Content},
		}
	case core.EventError:
		return outboundError(ev.Error.Code, ev.Error.Message)
	}
	return outboundError(core.ErrCodeBadRequest, "unknown event")
}

func outboundError(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

// outboundFromRelationshipErr maps relationship sentinel errors to wire error
// frames. Unknown errors come back as a generic bad_request so internals do
// not leak to clients.
func outboundFromRelationshipErr(err error) proto.Outbound {
	switch {
	case errors.Is(err, relationship.ErrInvalidTarget):
		return outboundError(core.ErrCodeInvalidTarget, err.Error())
	case errors.Is(err, relationship.ErrTargetNotFound):
		return outboundError(core.ErrCodeTargetNotFound, err.Error())
	case errors.Is(err, relationship.ErrAlreadyFriends):
		return outboundError(core.ErrCodeAlreadyFriends, err.Error())
	case errors.Is(err, relationship.ErrAlreadyRequested):
		return outboundError(core.ErrCodeAlreadyRequested, err.Error())
	case errors.Is(err, relationship.ErrInconsistentState):
		return outboundError(core.ErrCodeInconsistentState, err.Error())
	}
	return outboundError(core.ErrCodeBadRequest, "request failed")
}
