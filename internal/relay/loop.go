// Package relay drives the scraper: it detects new chat messages, fans them
// out to subscribers and executes subscriber commands one per tick.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// Scraper is the live chat source and the actuator for commands.
type Scraper interface {
	CurrentChat(ctx context.Context) (string, error)
	Messages(ctx context.Context, chatID string) (core.Snapshot, error)
	Chats(ctx context.Context) ([]core.ChatOption, error)
	OpenChat(ctx context.Context, chatID string) error
	SendMessage(ctx context.Context, text string) error
	SendFile(ctx context.Context, path string) error
	Screenshot(ctx context.Context) error
	DumpHTML(ctx context.Context) error
	Refresh(ctx context.Context) error
	DeclineCall(ctx context.Context) error
}

// Broadcaster fans one event out to subscribers. *core.Registry implements it.
type Broadcaster interface {
	Broadcast(msg core.ChatMessage) core.BroadcastResult
}

// Options tunes the loop. Zero Interval or MaxFailures select the defaults;
// a zero SwitchSettle does not wait after opening a chat.
type Options struct {
	Interval     time.Duration
	SwitchSettle time.Duration
	MaxFailures  int
}

const (
	DefaultInterval    = time.Second
	DefaultMaxFailures = 10
)

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.SwitchSettle < 0 {
		o.SwitchSettle = 0
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	return o
}

// Loop owns the snapshot cache and is the only consumer of the inbox.
type Loop struct {
	scraper Scraper
	cache   *core.Cache
	subs    Broadcaster
	inbox   *core.Inbox
	journal store.Journal
	opts    Options
	log     *zerolog.Logger

	failures int
}

// New creates a loop. journal may be nil.
func New(scraper Scraper, cache *core.Cache, subs Broadcaster, inbox *core.Inbox, journal store.Journal, opts Options, logger *zerolog.Logger) *Loop {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Loop{
		scraper: scraper,
		cache:   cache,
		subs:    subs,
		inbox:   inbox,
		journal: journal,
		opts:    opts.withDefaults(),
		log:     logger,
	}
}

// Failures returns the current consecutive failure count.
func (l *Loop) Failures() int {
	return l.failures
}

// Run ticks until ctx is done, a restart is requested or the failure budget
// is exhausted. Context cancellation returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	l.log.Info().
		Dur("interval", l.opts.Interval).
		Int("max_failures", l.opts.MaxFailures).
		Msg("event loop started")

	for {
		if err := l.Tick(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one iteration of the loop.
func (l *Loop) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.TickDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	t := &tick{}

	if err := l.scraper.DeclineCall(ctx); err != nil {
		// Usually means no call is ringing.
		l.log.Debug().Err(err).Msg("decline call")
	}

	current, err := l.scraper.CurrentChat(ctx)
	switch {
	case err != nil:
		l.fail(t, "current_chat", err)
	case current == "":
		// No conversation is open yet, e.g. the inbox landing page.
		l.log.Debug().Msg("no open chat, skipping detection")
	default:
		l.detect(ctx, t, current)
	}

	metrics.InboxDepth.Set(float64(l.inbox.Len()))
	if cmd, ok := l.inbox.TryNext(); ok {
		if err := l.dispatch(ctx, t, cmd); err != nil {
			return err
		}
		return l.settle(t)
	}

	if err := l.switchChat(ctx, t, current); err != nil {
		return err
	}
	return l.settle(t)
}

type tick struct {
	failed bool
}

func (l *Loop) fail(t *tick, op string, err error) {
	t.failed = true
	l.failures++
	metrics.ScraperFailures.WithLabelValues(op).Inc()
	l.log.Warn().Err(err).Str("op", op).Int("failures", l.failures).Msg("scraper call failed")
}

// settle closes the failure accounting of a tick.
func (l *Loop) settle(t *tick) error {
	if !t.failed {
		l.failures = 0
		return nil
	}
	if l.failures > l.opts.MaxFailures {
		return fmt.Errorf("%w: %d", ErrTooManyFailures, l.failures)
	}
	return nil
}

func (l *Loop) detect(ctx context.Context, t *tick, chatID string) {
	snap, err := l.scraper.Messages(ctx, chatID)
	if err != nil {
		l.fail(t, "messages", err)
		return
	}

	fresh, ok := l.cache.Check(chatID, snap)
	if !ok {
		return
	}

	for _, msg := range fresh {
		metrics.EventsDetected.Inc()
		res := l.subs.Broadcast(msg)
		metrics.Deliveries.WithLabelValues("delivered").Add(float64(res.Delivered))
		metrics.Deliveries.WithLabelValues("dropped").Add(float64(res.Dropped))
		if res.Pruned > 0 {
			metrics.SubscribersPruned.Add(float64(res.Pruned))
		}
		if res.Dropped > 0 {
			l.log.Warn().Int("dropped", res.Dropped).Str("chat_id", msg.ChatID).Msg("slow subscribers missed an event")
		}

		l.log.Info().
			Str("chat_id", msg.ChatID).
			Str("sender", msg.Sender).
			Int("subscribers", res.Delivered+res.Dropped).
			Msg("new message")

		if l.journal != nil {
			if err := l.journal.RecordEvent(ctx, msg); err != nil {
				l.log.Warn().Err(err).Msg("journal event failed")
			}
		}
	}

	if counted, ok := l.subs.(interface{ Active() int }); ok {
		metrics.Subscribers.Set(float64(counted.Active()))
	}
}

// switchChat opens the first chat that is unread or was never cached.
func (l *Loop) switchChat(ctx context.Context, t *tick, current string) error {
	chats, err := l.scraper.Chats(ctx)
	if err != nil {
		l.fail(t, "chats", err)
		return nil
	}

	for _, c := range chats {
		if c.ID == current || (!c.Unread && l.cache.Has(c.ID)) {
			continue
		}

		l.log.Info().Str("chat_id", c.ID).Bool("unread", c.Unread).Msg("switching chat")
		if err := l.scraper.OpenChat(ctx, c.ID); err != nil {
			l.fail(t, "open_chat", err)
			if err := l.scraper.Refresh(ctx); err != nil {
				l.fail(t, "refresh", err)
			}
			return nil
		}
		return sleep(ctx, l.opts.SwitchSettle)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
