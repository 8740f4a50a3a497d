package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/scheduler"
	"github.com/vovakirdan/chatrelay/internal/store"
	"github.com/vovakirdan/chatrelay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/chatrelay/internal/transport/http"
	"github.com/vovakirdan/chatrelay/internal/transport/tcp"
)

// App wires together core, scraper sessions and transport layers.
type App struct {
	cfg       config.Config
	registry  *core.Registry
	inbox     *core.Inbox
	cache     *core.Cache
	listener  *tcp.Listener
	server    *stdhttp.Server
	journal   store.Journal
	scheduler *scheduler.Scheduler
	sessions  *supervisor
	log       *zerolog.Logger
}

// New constructs the application. open creates scraper sessions; see
// BrowserSessions for the production factory.
func New(cfg *config.Config, open SessionFactory, logger *zerolog.Logger) (*App, error) {
	framing, err := proto.ParseFraming(cfg.Relay.Framing)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      *cfg,
		registry: core.NewRegistry(),
		inbox:    core.NewInbox(cfg.Relay.InboxSize),
		cache:    core.NewCache(logger),
		log:      logger,
	}

	if cfg.Journal.Path != "" {
		st, err := sqlite.New(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		a.journal = st
		logger.Info().Str("path", cfg.Journal.Path).Msg("journal initialized")
	}

	a.scheduler, err = scheduler.New(scheduler.Options{
		PruneSchedule:      cfg.Journal.PruneSchedule,
		Retention:          cfg.Journal.Retention,
		ScreenshotSchedule: cfg.Diagnostics.ScreenshotSchedule,
	}, a.journal, a.inbox, logger)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	a.listener = tcp.NewListener(tcp.Options{
		Addr:              cfg.Relay.Addr(),
		ReadBuffer:        cfg.Relay.ReadBuffer,
		SubscriberBuffer:  cfg.Relay.SubscriberBuffer,
		Framing:           framing,
		IdleTimeout:       cfg.Relay.IdleTimeout,
		WriteTimeout:      cfg.Relay.WriteTimeout,
		CommandsPerMinute: cfg.Relay.CommandsPerMinute,
	}, a.registry, a.inbox, logger)

	if cfg.HTTP.Addr != "" {
		a.server = transporthttp.NewServer(transporthttp.Deps{
			Registry: a.registry,
			Inbox:    a.inbox,
			Journal:  a.journal,
			JWT:      JWTConfig(cfg.Auth),
		}, cfg, logger)
	}

	a.sessions = newSupervisor(open, a.loopDeps(), logger)
	return a, nil
}

// JWTConfig maps the auth section to token settings.
func JWTConfig(cfg config.AuthConfig) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      cfg.TokenTTL,
	}
}

// Listen binds the relay socket. Run binds it when the caller has not.
func (a *App) Listen() error {
	if a.listener.Addr() != nil {
		return nil
	}
	return a.listener.Listen()
}

// RelayAddr returns the bound relay address, or nil before Listen.
func (a *App) RelayAddr() net.Addr {
	return a.listener.Addr()
}

// Run binds the relay listener, serves subscribers and drives scraper
// sessions until ctx is cancelled or the session supervisor gives up.
// A bind failure is returned before anything else starts.
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		a.cleanup()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenerDone := make(chan error, 1)
	go func() { listenerDone <- a.listener.Serve(ctx) }()

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.log.Info().Str("addr", a.server.Addr).Msg("http server started")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	a.scheduler.Start()
	notifyReady(a.log)

	sessionsDone := make(chan error, 1)
	go func() { sessionsDone <- a.sessions.run(ctx) }()

	var runErr error
	select {
	case err := <-sessionsDone:
		runErr = err
		cancel()
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
		cancel()
		<-sessionsDone
	case <-ctx.Done():
		<-sessionsDone
	}

	notifyStopping(a.log)
	a.shutdown()
	<-listenerDone
	a.cleanup()
	return runErr
}

func (a *App) loopDeps() loopDeps {
	return loopDeps{
		cache:    a.cache,
		registry: a.registry,
		inbox:    a.inbox,
		journal:  a.journal,
		loop:     a.cfg.Loop,
	}
}

func (a *App) shutdown() {
	a.scheduler.Stop()

	if a.server == nil {
		return
	}
	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.log.Info().Msg("shutting down http server")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http server shutdown")
	}
}

// cleanup closes the inbox and the journal.
func (a *App) cleanup() {
	a.inbox.Close()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close journal")
		} else {
			a.log.Info().Msg("journal closed")
		}
	}
}
