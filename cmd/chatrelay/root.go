package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/log"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "chatrelay",
		Short:        "Relay a web chat session to TCP and websocket subscribers",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default $CHATRELAY_CONFIG_DEFAULT_PATH/config.yaml or ./config.yaml)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	cmd.AddCommand(
		newServeCmd(g),
		newTailCmd(g),
		newSendCmd(g),
		newTokenCmd(g),
	)
	return cmd
}

// load resolves configuration for a subcommand. Logs go to logOut so that
// commands printing events keep stdout clean.
func (g *globalFlags) load(logOut io.Writer, overrides config.Overrides) (*config.Config, *config.Loader, *zerolog.Logger, error) {
	bootstrap := log.NewWithWriter(g.logLevel, zerolog.ConsoleWriter{Out: logOut})

	loader := config.NewLoader(bootstrap, g.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	overrides.LogLevel = g.logLevel
	cfg.UpdateFrom(overrides)

	logger := log.NewWithWriter(cfg.LogLevel, zerolog.ConsoleWriter{Out: logOut})
	return &cfg, loader, logger, nil
}
