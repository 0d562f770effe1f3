package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/config"
	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/store"
	transporthttp "github.com/vovakirdan/grammarchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	ctrl            *core.Controller
	store           store.KV
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, secrets config.Secrets, logger *zerolog.Logger) (*App, error) {
	kv, err := OpenStore(ctx, cfg, secrets)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Str("key", cfg.Storage.Key).Msg("message store opened")

	client, err := NewCompletionClient(cfg, secrets)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("init completion client: %w", err)
	}
	if secrets.CompletionKey() == "" {
		logger.Warn().Str("provider", cfg.Completion.Provider).Msg("no API key set; every submission will fail")
	}

	hub := core.NewHub(logger)
	st := core.NewMessageStore(kv, cfg.Storage.Key, hub, logger)
	st.Load(ctx)

	ctrl := core.NewController(st, client, hub, cfg.Completion.Timeout, logger)
	server := transporthttp.NewServer(ctrl, hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		ctrl:            ctrl,
		store:           kv,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup(context.Background())
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup(shutdownCtx)
			return err
		}

		a.cleanup(shutdownCtx)
		return <-serverErr
	}
}

// cleanup waits for in-flight completions so their outcome is persisted, then closes the store.
func (a *App) cleanup(ctx context.Context) {
	if err := a.ctrl.Drain(ctx); err != nil {
		a.log.Warn().Err(err).Msg("in-flight completion did not finish before shutdown")
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
