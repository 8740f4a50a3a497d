// Package scheduler runs the relay's periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// Options selects the jobs to run. An empty schedule disables its job.
type Options struct {
	PruneSchedule      string
	Retention          time.Duration
	ScreenshotSchedule string
}

// Scheduler owns a cron runner with the relay jobs registered on it.
type Scheduler struct {
	c       *cron.Cron
	journal store.Journal
	inbox   *core.Inbox
	opts    Options
	log     *zerolog.Logger
	now     func() time.Time
}

// New validates the schedules and registers the enabled jobs. journal may be
// nil, in which case pruning is skipped.
func New(opts Options, journal store.Journal, inbox *core.Inbox, logger *zerolog.Logger) (*Scheduler, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Scheduler{
		c:       cron.New(cron.WithParser(parser)),
		journal: journal,
		inbox:   inbox,
		opts:    opts,
		log:     logger,
		now:     time.Now,
	}

	if journal != nil && opts.PruneSchedule != "" && opts.Retention > 0 {
		if _, err := s.c.AddFunc(opts.PruneSchedule, func() { _, _ = s.Prune(context.Background()) }); err != nil {
			return nil, fmt.Errorf("prune schedule %q: %w", opts.PruneSchedule, err)
		}
	}
	if inbox != nil && opts.ScreenshotSchedule != "" {
		if _, err := s.c.AddFunc(opts.ScreenshotSchedule, s.Screenshot); err != nil {
			return nil, fmt.Errorf("screenshot schedule %q: %w", opts.ScreenshotSchedule, err)
		}
	}

	return s, nil
}

// Jobs returns how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.c.Entries())
}

// Start runs the jobs in the background until Stop.
func (s *Scheduler) Start() {
	s.c.Start()
	s.log.Info().Int("jobs", s.Jobs()).Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// Prune removes journal entries older than the retention window.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.opts.Retention)
	removed, err := s.journal.Prune(ctx, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("journal prune failed")
		return 0, err
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Time("before", cutoff).Msg("journal pruned")
	}
	return removed, nil
}

// Screenshot queues a diagnostic screenshot. A full inbox skips this round.
func (s *Scheduler) Screenshot() {
	cmd := core.Command{Kind: core.CommandScreenshot, Sender: core.SentinelScreenshot, Origin: "scheduler"}
	if err := s.inbox.TrySubmit(cmd); err != nil {
		s.log.Warn().Err(err).Msg("scheduled screenshot skipped")
	}
}
