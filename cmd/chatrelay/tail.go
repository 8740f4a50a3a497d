package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrelay/internal/client"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

func newTailCmd(g *globalFlags) *cobra.Command {
	var (
		o      config.Overrides
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print relayed chat events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, logger, err := g.load(cmd.ErrOrStderr(), o)
			if err != nil {
				return err
			}
			framing, err := proto.ParseFraming(cfg.Relay.Framing)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := client.Dial(ctx, cfg.Relay.Addr(), framing, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			logger.Info().Str("relay", cfg.Relay.Addr()).Msg("subscribed")

			out := cmd.OutOrStdout()
			for {
				msg, err := c.Receive(ctx)
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
				if err := printEvent(out, msg, asJSON); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&o.RelayHost, "host", "", "relay host")
	cmd.Flags().IntVar(&o.RelayPort, "port", 0, "relay port")
	cmd.Flags().StringVar(&o.Framing, "framing", "", "subscriber framing: splice or line")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per line")
	return cmd
}

func printEvent(w io.Writer, msg proto.Message, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(msg)
	}
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", msg.ChatID, msg.Sender, msg.Content)
	return err
}
