package relay

import (
	"context"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// dispatch executes one subscriber command. Only a restart request is
// returned as an error; scraper failures go to the failure budget.
func (l *Loop) dispatch(ctx context.Context, t *tick, cmd core.Command) error {
	logger := l.log.With().
		Str("kind", cmd.Kind.String()).
		Str("chat_id", cmd.ChatID).
		Str("origin", cmd.Origin).
		Logger()

	if cmd.Kind == core.CommandRestart {
		logger.Info().Msg("restart requested by subscriber")
		l.record(ctx, cmd, nil)
		return ErrRestartRequested
	}

	var (
		op  string
		err error
	)
	switch cmd.Kind {
	case core.CommandScreenshot:
		op, err = "screenshot", l.scraper.Screenshot(ctx)
	case core.CommandDumpHTML:
		op, err = "dump_html", l.scraper.DumpHTML(ctx)
	case core.CommandRefresh:
		op, err = "refresh", l.scraper.Refresh(ctx)
	case core.CommandSendFile:
		logger.Info().Str("path", cmd.Content).Msg("sending file")
		op, err = l.sendTo(ctx, cmd.ChatID, "send_file", func() error {
			return l.scraper.SendFile(ctx, cmd.Content)
		})
	default:
		logger.Info().Msg("sending message")
		op, err = l.sendTo(ctx, cmd.ChatID, "send_message", func() error {
			return l.scraper.SendMessage(ctx, cmd.Content)
		})
	}

	if err != nil {
		l.fail(t, op, err)
	}
	l.record(ctx, cmd, err)
	return nil
}

// sendTo opens chatID, then runs send. It returns the failing operation.
func (l *Loop) sendTo(ctx context.Context, chatID, op string, send func() error) (string, error) {
	if chatID != "" {
		if err := l.scraper.OpenChat(ctx, chatID); err != nil {
			return "open_chat", err
		}
	}
	return op, send()
}

func (l *Loop) record(ctx context.Context, cmd core.Command, dispatchErr error) {
	status := store.CommandStatusOK
	if dispatchErr != nil {
		status = store.CommandStatusFailed
	}
	metrics.Commands.WithLabelValues(cmd.Kind.String(), string(status)).Inc()

	if l.journal == nil {
		return
	}
	if err := l.journal.RecordCommand(ctx, cmd, status, dispatchErr); err != nil {
		l.log.Warn().Err(err).Msg("journal command failed")
	}
}
