package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/dice"
	"github.com/vovakirdan/chatrelay/internal/store"
	transporthttp "github.com/vovakirdan/chatrelay/internal/transport/http"
)

// App wires together the chat core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New opens the message store and builds the chat service. It fails when the
// store cannot be reached, so the service never listens without persistence.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	st, err := OpenStore(openCtx, cfg.StoreURI)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Ping(openCtx); err != nil {
		st.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	logger.Info().Str("store", redactURI(cfg.StoreURI)).Msg("database connected")

	roller := dice.NewClient(cfg.DiceURI, cfg.DiceTimeout)
	hub := core.NewHub(st, roller, core.NewRegistry(), logger,
		core.WithDiceTimeout(cfg.DiceTimeout),
		core.WithStoreTimeout(cfg.StoreTimeout),
	)
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	a.log.Info().Str("addr", a.server.Addr).Msg("chat server listening")
	err := serve(ctx, a.server, a.shutdownTimeout, a.log)

	stopHub()
	<-a.hub.Done()
	a.waitTasks()
	a.cleanup()
	return err
}

// waitTasks gives in-flight store writes a bounded chance to finish.
func (a *App) waitTasks() {
	done := make(chan struct{})
	go func() {
		a.hub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.shutdownTimeout):
		a.log.Warn().Msg("timed out waiting for pending store writes")
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

// serve runs server until ctx is canceled, then shuts it down gracefully.
func serve(ctx context.Context, server *stdhttp.Server, shutdownTimeout time.Duration, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
