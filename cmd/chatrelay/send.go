package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrelay/internal/client"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

// controlSenders maps --command names to wire sentinels.
var controlSenders = map[string]string{
	"screenshot": core.SentinelScreenshot,
	"html":       core.SentinelHTML,
	"restart":    core.SentinelRestart,
	"refresh":    core.SentinelRefresh,
	"file":       core.SentinelFile,
}

func newSendCmd(g *globalFlags) *cobra.Command {
	var (
		o       config.Overrides
		sender  string
		chatID  string
		command string
	)

	cmd := &cobra.Command{
		Use:   "send [content...]",
		Short: "Submit one message or control command to the relay",
		Example: `  chatrelay send --chat 100042 hello there
  chatrelay send --command file --chat 100042 ./report.pdf
  chatrelay send --command screenshot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := buildMessage(command, sender, chatID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			cfg, _, logger, err := g.load(cmd.ErrOrStderr(), o)
			if err != nil {
				return err
			}
			framing, err := proto.ParseFraming(cfg.Relay.Framing)
			if err != nil {
				return err
			}

			c, err := client.Dial(cmd.Context(), cfg.Relay.Addr(), framing, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Send(msg); err != nil {
				return err
			}
			logger.Info().Str("sender", msg.Sender).Str("chat_id", msg.ChatID).Msg("submitted")
			return nil
		},
	}

	cmd.Flags().StringVar(&o.RelayHost, "host", "", "relay host")
	cmd.Flags().IntVar(&o.RelayPort, "port", 0, "relay port")
	cmd.Flags().StringVar(&o.Framing, "framing", "", "subscriber framing: splice or line")
	cmd.Flags().StringVar(&sender, "sender", "chatrelay", "sender name for ordinary messages")
	cmd.Flags().StringVar(&chatID, "chat", "", "target chat id (empty sends to the open chat)")
	cmd.Flags().StringVar(&command, "command", "", "control command: screenshot, html, restart, refresh, file")
	return cmd
}

func buildMessage(command, sender, chatID, content string) (proto.Message, error) {
	if command == "" {
		if content == "" {
			return proto.Message{}, fmt.Errorf("message content is required")
		}
		return proto.Message{Sender: sender, Content: content, ChatID: chatID}, nil
	}

	sentinel, ok := controlSenders[strings.ToLower(command)]
	if !ok {
		return proto.Message{}, fmt.Errorf("unknown command %q", command)
	}
	if sentinel == core.SentinelFile && content == "" {
		return proto.Message{}, fmt.Errorf("file command needs a path")
	}
	return proto.Message{Sender: sentinel, Content: content, ChatID: chatID}, nil
}
