package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/transport/limiter"
)

// session bridges one connection to the registry and the inbox.
type session struct {
	conn    net.Conn
	sub     *core.Subscriber
	reg     *core.Registry
	inbox   *core.Inbox
	framing proto.Framing
	decoder proto.Decoder
	limiter *limiter.Limiter
	opts    Options
	log     zerolog.Logger
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(ctx)
	}()
	go func() {
		errCh <- s.writeLoop(ctx)
	}()

	err := <-errCh
	cancel()
	// Unblocks a pending Read.
	s.conn.Close()
	<-errCh

	s.sub.Close()
	metrics.Subscribers.Set(float64(s.reg.Active()))

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, net.ErrClosed) {
		s.log.Warn().Err(err).Msg("subscriber connection closed with error")
		return
	}
	s.log.Info().Msg("subscriber disconnected")
}

func (s *session) readLoop(ctx context.Context) error {
	buf := make([]byte, s.opts.ReadBuffer)
	for {
		if s.opts.IdleTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)); err != nil {
				return err
			}
		}

		n, err := s.conn.Read(buf)
		if n > 0 {
			if subErr := s.handle(ctx, buf[:n]); subErr != nil {
				return subErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handle decodes one read and queues the resulting commands in order.
func (s *session) handle(ctx context.Context, chunk []byte) error {
	msgs, frameErrs := s.decoder.Feed(chunk)
	for _, fe := range frameErrs {
		metrics.FramesRejected.WithLabelValues(fe.Reason).Inc()
		s.log.Warn().Err(fe.Err).Str("reason", fe.Reason).Str("fragment", fe.Fragment).Msg("dropped inbound fragment")
	}

	for _, m := range msgs {
		cmd := proto.ToCommand(m, s.sub.ID)
		if !s.limiter.Allow() {
			metrics.Commands.WithLabelValues(cmd.Kind.String(), "limited").Inc()
			s.log.Warn().Str("kind", cmd.Kind.String()).Int("per_minute", s.limiter.Limit()).Msg("command rate limited")
			continue
		}
		if err := s.inbox.Submit(ctx, cmd); err != nil {
			return err
		}
		metrics.Commands.WithLabelValues(cmd.Kind.String(), "queued").Inc()
		s.log.Debug().Str("kind", cmd.Kind.String()).Str("chat_id", cmd.ChatID).Msg("command queued")
	}
	return nil
}

func (s *session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.sub.Events:
			data, err := proto.Encode(s.framing, proto.FromChatMessage(ev))
			if err != nil {
				s.log.Error().Err(err).Msg("encode event")
				continue
			}
			if s.opts.WriteTimeout > 0 {
				if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
					return err
				}
			}
			if _, err := s.conn.Write(data); err != nil {
				return err
			}
		}
	}
}
