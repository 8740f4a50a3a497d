package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/transport/limiter"
)

// WSHandler upgrades HTTP connections into relay subscribers. Every
// websocket message carries exactly one JSON object, so no reframing is needed.
type WSHandler struct {
	reg   *core.Registry
	inbox *core.Inbox
	cfg   config.RelayConfig
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(reg *core.Registry, inbox *core.Inbox, cfg config.RelayConfig, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{reg: reg, inbox: inbox, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.ReadBuffer > 0 {
		conn.SetReadLimit(int64(h.cfg.ReadBuffer))
	}

	sub := core.NewSubscriber(uuid.NewString(), r.RemoteAddr, "ws", h.cfg.SubscriberBuffer)
	h.reg.Register(sub)
	defer func() {
		sub.Close()
		metrics.Subscribers.Set(float64(h.reg.Active()))
	}()
	metrics.SubscribersAccepted.WithLabelValues("ws").Inc()
	metrics.Subscribers.Set(float64(h.reg.Active()))

	logger := h.log.With().Str("subscriber_id", sub.ID).Str("remote", sub.Remote).Logger()
	logger.Info().Msg("ws subscriber connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lim := limiter.New(h.cfg.CommandsPerMinute)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sub, lim, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	logger.Info().Msg("ws subscriber disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscriber, lim *limiter.Limiter, logger *zerolog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		msg, err := proto.Decode(data)
		if err != nil {
			metrics.FramesRejected.WithLabelValues(proto.ReasonParse).Inc()
			logger.Warn().Err(err).Msg("dropped ws message")
			continue
		}

		cmd := proto.ToCommand(msg, sub.ID)
		if !lim.Allow() {
			metrics.Commands.WithLabelValues(cmd.Kind.String(), "limited").Inc()
			logger.Warn().Str("kind", cmd.Kind.String()).Msg("command rate limited")
			continue
		}
		if err := h.inbox.Submit(ctx, cmd); err != nil {
			return err
		}
		metrics.Commands.WithLabelValues(cmd.Kind.String(), "queued").Inc()
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscriber, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-sub.Events:
			if err := wsjson.Write(ctx, conn, proto.FromChatMessage(event)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
