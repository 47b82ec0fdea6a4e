package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/okarpov/driftchat-server/internal/service/relationship"
)

// FriendsHandlers provides HTTP handlers for friend management endpoints.
type FriendsHandlers struct {
	service *relationship.Service
	log     *zerolog.Logger
}

// NewFriendsHandlers creates a new friends handlers instance.
func NewFriendsHandlers(svc *relationship.Service, logger *zerolog.Logger) *FriendsHandlers {
	return &FriendsHandlers{
		service: svc,
		log:     logger,
	}
}

// SendFriendRequestRequest represents the request body for sending a friend request.
type SendFriendRequestRequest struct {
	To string `json:"to" binding:"required"`
}

// SendRequest handles sending a friend request. Thin wrapper over the
// relationship service; the sender identity comes from the token.
// POST /api/friend-request
func (h *FriendsHandlers) SendRequest(c *gin.Context) {
	from, ok := identityFromContext(c)
	if !ok {
		h.log.Error().Msg("username not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid friend request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.service.SendRequest(c.Request.Context(), from, req.To); err != nil {
		switch {
		case errors.Is(err, relationship.ErrInvalidTarget):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot add yourself as a friend"})
		case errors.Is(err, relationship.ErrTargetNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		case errors.Is(err, relationship.ErrAlreadyFriends):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "already friends"})
		case errors.Is(err, relationship.ErrAlreadyRequested):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "friend request already sent"})
		default:
			h.log.Error().Err(err).Str("from", from).Str("to", req.To).Msg("failed to send friend request")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("from", from).Str("to", req.To).Msg("friend request sent")
	c.JSON(http.StatusOK, gin.H{"message": "friend request sent"})
}

// ListFriends returns the authenticated user's ordered friend list.
// GET /api/friends
func (h *FriendsHandlers) ListFriends(c *gin.Context) {
	username, ok := identityFromContext(c)
	if !ok {
		h.log.Error().Msg("username not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	friends, err := h.service.Friends(c.Request.Context(), username)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("failed to list friends")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if friends == nil {
		friends = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListPendingRequests returns incoming pending friend requests in ledger order.
// GET /api/friends/requests
func (h *FriendsHandlers) ListPendingRequests(c *gin.Context) {
	username, ok := identityFromContext(c)
	if !ok {
		h.log.Error().Msg("username not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	pending := h.service.PendingRequests(username)
	if pending == nil {
		pending = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"requests": pending})
}
