// Package tcp serves subscribers over plain stream sockets.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/transport/limiter"
)

// Options configures the listener and every session it spawns.
type Options struct {
	Addr              string
	ReadBuffer        int
	SubscriberBuffer  int
	Framing           proto.Framing
	IdleTimeout       time.Duration
	WriteTimeout      time.Duration
	CommandsPerMinute int
}

// Listener accepts subscriber connections. It has no connection limit and no
// authentication; bind it to a trusted network.
type Listener struct {
	opts  Options
	reg   *core.Registry
	inbox *core.Inbox
	log   *zerolog.Logger

	ln net.Listener
	wg sync.WaitGroup
}

// NewListener creates a listener. Call Listen before Serve.
func NewListener(opts Options, reg *core.Registry, inbox *core.Inbox, logger *zerolog.Logger) *Listener {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.ReadBuffer <= 0 {
		opts.ReadBuffer = proto.DefaultMaxFrame
	}
	if opts.Framing == "" {
		opts.Framing = proto.FramingSplice
	}
	return &Listener{opts: opts, reg: reg, inbox: inbox, log: logger}
}

// Listen binds the socket. A bind failure is not retried.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.opts.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", l.opts.Addr, err)
	}
	l.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is done, then closes the socket and
// waits for open sessions to end.
func (l *Listener) Serve(ctx context.Context) error {
	if l.ln == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}

	l.log.Info().
		Str("addr", l.ln.Addr().String()).
		Str("framing", string(l.opts.Framing)).
		Msg("relay listener started")

	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				l.log.Info().Msg("relay listener stopped")
				return nil
			}
			l.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		l.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("subscriber connected")

		sub := core.NewSubscriber(uuid.NewString(), conn.RemoteAddr().String(), "tcp", l.opts.SubscriberBuffer)
		l.reg.Register(sub)
		metrics.SubscribersAccepted.WithLabelValues("tcp").Inc()
		metrics.Subscribers.Set(float64(l.reg.Active()))

		s := &session{
			conn:    conn,
			sub:     sub,
			reg:     l.reg,
			inbox:   l.inbox,
			framing: l.opts.Framing,
			decoder: proto.NewDecoder(l.opts.Framing, l.opts.ReadBuffer),
			limiter: limiter.New(l.opts.CommandsPerMinute),
			opts:    l.opts,
			log:     l.log.With().Str("subscriber_id", sub.ID).Str("remote", sub.Remote).Logger(),
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			s.run(ctx)
		}()
	}
}
