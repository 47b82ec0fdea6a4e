package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/okarpov/driftchat-server/internal/auth"
	"github.com/okarpov/driftchat-server/internal/config"
	"github.com/okarpov/driftchat-server/internal/core"
	"github.com/okarpov/driftchat-server/internal/service/relationship"
)

// Deps bundles what the transport layer needs from the rest of the app.
type Deps struct {
	Auth          *auth.Service
	Relationships *relationship.Service
	Router        *core.Router
	Lifecycle     *core.Lifecycle
}

// NewServer builds the HTTP server: REST API, health check and the
// websocket endpoint.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	friendsHandlers := NewFriendsHandlers(deps.Relationships, logger)
	wsHandler := NewWSHandler(deps, cfg, logger)

	engine.GET("/health", func(c *gin.Context) {
		fmt.Fprint(c.Writer, "ok")
	})

	api := engine.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authed := api.Group("", AuthMiddleware(deps.Auth, logger))
	authed.POST("/friend-request", friendsHandlers.SendRequest)
	authed.GET("/friends", friendsHandlers.ListFriends)
	authed.GET("/friends/requests", friendsHandlers.ListPendingRequests)

	engine.GET("/ws", gin.WrapH(wsHandler))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
