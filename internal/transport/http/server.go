package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/galafis/roomcast-server/internal/auth"
	"github.com/galafis/roomcast-server/internal/config"
	"github.com/galafis/roomcast-server/internal/core"
	"github.com/galafis/roomcast-server/internal/store"
)

// NewServer builds the HTTP server: auth REST endpoints, room catalogue and
// history endpoints, and the websocket upgrade route.
func NewServer(sessions *core.Sessions, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(st, cfg, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.GET("/rooms", roomHandlers.ListRooms)

	authed := api.Group("", AuthMiddleware(authService, logger))
	authed.GET("/messages/:room", roomHandlers.Messages)

	router.GET("/ws", gin.WrapH(NewWSHandler(sessions, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
