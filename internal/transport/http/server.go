package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/config"
	"github.com/vovakirdan/grammarchat-server/internal/core"
)

// NewServer builds the HTTP server with the REST API and the WebSocket endpoint.
func NewServer(ctrl *core.Controller, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(ctrl, hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler routes /ws straight to the WebSocket handler and everything else
// to the gin engine. gin refuses to hijack a connection once the upgrade
// status has been written, so /ws must stay outside of it.
func NewHandler(ctrl *core.Controller, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", WSRequestMiddleware(logger, NewWSHandler(ctrl, hub, cfg.MaxMessageBytes, logger)))
	mux.Handle("/", NewRouter(ctrl, cfg, logger))
	return mux
}

// NewRouter builds the gin engine serving the REST API.
func NewRouter(ctrl *core.Controller, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	handlers := NewAPIHandlers(ctrl, logger)
	api := router.Group("/api")
	api.Use(BodyLimitMiddleware(cfg.MaxMessageBytes))
	{
		api.GET("/state", handlers.GetState)
		api.GET("/messages", handlers.ListMessages)
		api.POST("/messages", handlers.Submit)
		api.DELETE("/messages", handlers.ClearMessages)
		api.GET("/messages/:id", handlers.GetMessage)
		api.DELETE("/messages/:id", handlers.DeleteMessage)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
