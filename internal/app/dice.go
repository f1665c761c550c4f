package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/dice"
	transporthttp "github.com/vovakirdan/chatrelay/internal/transport/http"
)

// DiceApp is the standalone random value service.
type DiceApp struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// NewDice builds the dice service listening on cfg.DiceAddr.
func NewDice(cfg *config.Config, logger *zerolog.Logger) *DiceApp {
	router := gin.New()
	router.Use(gin.Recovery(), transporthttp.LoggerMiddleware(logger))
	dice.NewHandlers(nil).Register(router)

	return &DiceApp{
		server: &stdhttp.Server{
			Addr:              cfg.DiceAddr,
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *DiceApp) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run serves until ctx is canceled.
func (a *DiceApp) Run(ctx context.Context) error {
	a.log.Info().Str("addr", a.server.Addr).Msg("dice server listening")
	return serve(ctx, a.server, a.shutdownTimeout, a.log)
}
