package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrelay/internal/app"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/log"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var o config.Overrides

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, logger, err := g.load(os.Stdout, o)
			if err != nil {
				return err
			}

			if g.logLevel == "" {
				loader.Watch(func(next config.Config) {
					log.SetLevel(next.LogLevel)
					logger.Info().Str("log_level", next.LogLevel).Msg("log level applied")
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, app.BrowserSessions(cfg, logger), logger)
			if err != nil {
				return err
			}

			logger.Info().
				Str("config", loader.Path()).
				Str("relay", cfg.Relay.Addr()).
				Str("http", cfg.HTTP.Addr).
				Str("framing", cfg.Relay.Framing).
				Msg("starting chatrelay")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("relay exited with error")
				return err
			}
			logger.Info().Msg("relay stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&o.RelayHost, "host", "", "relay listen host")
	cmd.Flags().IntVar(&o.RelayPort, "port", 0, "relay listen port")
	cmd.Flags().StringVar(&o.HTTPAddr, "http-addr", "", "admin HTTP listen address")
	cmd.Flags().StringVar(&o.Framing, "framing", "", "subscriber framing: splice or line")
	return cmd
}
