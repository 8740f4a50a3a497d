package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// Deps are the relay parts exposed over HTTP. Journal may be nil.
type Deps struct {
	Registry *core.Registry
	Inbox    *core.Inbox
	Journal  store.Journal
	JWT      *auth.JWTConfig
}

// NewServer builds the admin HTTP server.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	var wsHandler stdhttp.Handler = NewWSHandler(deps.Registry, deps.Inbox, cfg.Relay, logger)
	api := NewAPIHandlers(deps.Registry, deps.Inbox, deps.Journal, logger)

	apiGroup := router.Group("/api")
	if deps.JWT.Enabled() {
		apiGroup.Use(AuthMiddleware(deps.JWT, logger))
		wsHandler = RequireToken(deps.JWT, logger, wsHandler)
	} else {
		logger.Warn().Msg("auth.jwt_secret is empty, /ws and /api are unauthenticated")
	}
	{
		apiGroup.GET("/subscribers", api.ListSubscribers)
		apiGroup.GET("/history", api.History)
		apiGroup.GET("/commands", api.ListCommands)
		apiGroup.POST("/commands", api.SubmitCommand)
	}

	// The websocket upgrade hijacks the connection, which gin's writer
	// refuses once the status is recorded, so /ws bypasses the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
