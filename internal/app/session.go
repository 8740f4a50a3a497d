package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/relay"
	"github.com/vovakirdan/chatrelay/internal/scraper/browser"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// Session is a scraper bound to one browser login.
type Session interface {
	relay.Scraper
	Close() error
}

// SessionFactory opens a scraper session. clearCookies asks for a login
// from scratch instead of restoring the stored jar.
type SessionFactory func(ctx context.Context, clearCookies bool) (Session, error)

// BrowserSessions returns a factory that opens Messenger sessions in Chrome.
func BrowserSessions(cfg *config.Config, logger *zerolog.Logger) SessionFactory {
	return func(ctx context.Context, clearCookies bool) (Session, error) {
		sc, err := browser.Open(ctx, browser.Options{
			Browser:        cfg.Browser,
			DiagnosticsDir: cfg.Diagnostics.Dir,
			ClearCookies:   clearCookies,
		}, logger)
		if err != nil {
			return nil, err
		}
		return sc, nil
	}
}

type loopDeps struct {
	cache    *core.Cache
	registry *core.Registry
	inbox    *core.Inbox
	journal  store.Journal
	loop     config.LoopConfig
}

const (
	// A failure this long after the previous one is treated as isolated.
	isolatedFailureGap = time.Minute
	restartBackoff     = 30 * time.Second
)

// supervisor keeps a scraper session running. Subscribers, the inbox and
// the snapshot cache outlive individual sessions.
type supervisor struct {
	open    SessionFactory
	deps    loopDeps
	log     *zerolog.Logger
	now     func() time.Time
	backoff time.Duration
	gap     time.Duration
}

func newSupervisor(open SessionFactory, deps loopDeps, logger *zerolog.Logger) *supervisor {
	return &supervisor{
		open:    open,
		deps:    deps,
		log:     logger,
		now:     time.Now,
		backoff: restartBackoff,
		gap:     isolatedFailureGap,
	}
}

// run opens sessions until ctx is done or failures repeat. A requested
// restart reopens with the stored cookies. An isolated failure reopens after
// a backoff; a failure soon after another one, or soon after startup, retries
// once with a cleared cookie jar and then gives up.
func (s *supervisor) run(ctx context.Context) error {
	clearCookies := false
	// A session that dies right after startup usually means a stale jar.
	lastFailure := s.now()

	for {
		if ctx.Err() != nil {
			return nil
		}
		err := s.session(ctx, clearCookies)

		switch {
		case ctx.Err() != nil:
			metrics.Sessions.WithLabelValues("shutdown").Inc()
			return nil
		case errors.Is(err, relay.ErrRestartRequested):
			metrics.Sessions.WithLabelValues("restart").Inc()
			s.log.Info().Msg("restarting scraper session")
			clearCookies = false
			continue
		}

		metrics.Sessions.WithLabelValues("failed").Inc()
		now := s.now()
		isolated := now.Sub(lastFailure) > s.gap
		lastFailure = now

		switch {
		case isolated:
			s.log.Warn().Err(err).Dur("backoff", s.backoff).Msg("scraper session failed, restarting")
			clearCookies = false
			if err := sleep(ctx, s.backoff); err != nil {
				metrics.Sessions.WithLabelValues("shutdown").Inc()
				return nil
			}
		case clearCookies:
			return fmt.Errorf("scraper session: %w", err)
		default:
			s.log.Warn().Err(err).Msg("scraper session failed again, retrying with cleared cookies")
			clearCookies = true
		}
	}
}

// session opens one scraper and drives the event loop on it.
func (s *supervisor) session(ctx context.Context, clearCookies bool) error {
	sc, err := s.open(ctx, clearCookies)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sc.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close scraper session")
		}
	}()

	s.log.Info().Bool("clear_cookies", clearCookies).Msg("scraper session opened")

	loop := relay.New(sc, s.deps.cache, s.deps.registry, s.deps.inbox, s.deps.journal, relay.Options{
		Interval:     s.deps.loop.Interval,
		SwitchSettle: s.deps.loop.SwitchSettle,
		MaxFailures:  s.deps.loop.MaxFailures,
	}, s.log)
	return loop.Run(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
