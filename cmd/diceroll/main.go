package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrelay/internal/app"
	"github.com/vovakirdan/chatrelay/internal/config"
	wlog "github.com/vovakirdan/chatrelay/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "diceroll",
		Short:         "HTTP service returning a random die face",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(wlog.New("info", "console"), configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := wlog.New(cfg.LogLevel, cfg.LogFormat)
			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.NewDice(&cfg, logger).Run(ctx); err != nil {
				logger.Error().Err(err).Msg("dice server exited with error")
				return err
			}
			logger.Info().Msg("dice server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config.yaml")
	flags.StringVar(&overrides.DiceAddr, "addr", "", "HTTP listen address")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")

	return cmd
}
