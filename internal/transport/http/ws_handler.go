package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/okarpov/driftchat-server/internal/auth"
	"github.com/okarpov/driftchat-server/internal/config"
	"github.com/okarpov/driftchat-server/internal/core"
	"github.com/okarpov/driftchat-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	deps Deps
	cfg  config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(deps Deps, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{deps: deps, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	claims, err := h.deps.Auth.ValidateToken(tokenFromRequest(r))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth rejected")
		stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(uuid.NewString())
	defer h.deps.Lifecycle.OnDisconnect(client)

	limiter := newRateLimiter(h.cfg.MessageRateLimit)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, claims, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, claims *auth.Claims, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		reply := h.dispatch(ctx, client, claims, limiter, inbound)
		if reply != nil {
			if err := wsjson.Write(ctx, conn, *reply); err != nil {
				return err
			}
		}
	}
}

// dispatch handles one inbound frame and returns an error frame to send back,
// or nil when no immediate reply is needed. Invalid frames never terminate
// the connection.
func (h *WSHandler) dispatch(ctx context.Context, client *core.Client, claims *auth.Claims, limiter *rateLimiter, inbound proto.Inbound) *proto.Outbound {
	if inbound.Type == proto.InboundTypeLogin {
		var data proto.LoginData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errFrame(core.ErrCodeBadRequest, "malformed login data")
		}
		if data.Username != claims.Username {
			return errFrame(core.ErrCodeUnauthorized, "login does not match token identity")
		}
		h.deps.Lifecycle.OnLogin(client, claims.Username)
		h.log.Info().Str("username", claims.Username).Str("client_id", client.ID).Msg("ws client logged in")
		return nil
	}

	username := client.Username()
	if username == "" {
		return errFrame(core.ErrCodeUnauthorized, "login required")
	}

	switch inbound.Type {
	case proto.InboundTypeFriendRequest:
		var data proto.FriendRequestData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errFrame(core.ErrCodeBadRequest, "malformed friend request data")
		}
		if err := h.deps.Relationships.SendRequest(ctx, username, data.To); err != nil {
			out := outboundFromRelationshipErr(err)
			return &out
		}
		return nil

	case proto.InboundTypeAcceptFriend:
		var data proto.AcceptFriendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errFrame(core.ErrCodeBadRequest, "malformed accept data")
		}
		if err := h.deps.Relationships.AcceptRequest(ctx, username, data.From); err != nil {
			out := outboundFromRelationshipErr(err)
			return &out
		}
		return nil

	case proto.InboundTypeMsg:
		var data proto.MsgData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errFrame(core.ErrCodeBadRequest, "malformed message data")
		}
		if h.cfg.MaxContentBytes > 0 && len(data.Content) > h.cfg.MaxContentBytes {
			return errFrame(core.ErrCodeContentTooLarge, "message content too large")
		}
		if !limiter.allow() {
			return errFrame(core.ErrCodeRateLimited, "message rate limit exceeded")
		}
		// Offline recipients drop the message silently.
		h.deps.Router.DeliverMessage(username, data.To, data.Content)
		return nil
	}

	return errFrame(core.ErrCodeBadRequest, "unknown message type")
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events():
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func errFrame(code, msg string) *proto.Outbound {
	out := outboundError(code, msg)
	return &out
}

// tokenFromRequest reads the JWT from the Authorization header, falling back
// to the token query parameter for browser websocket clients that cannot set
// headers.
func tokenFromRequest(r *stdhttp.Request) string {
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}
