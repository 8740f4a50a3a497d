package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/store/sqlite"
)

func TestNewRegistersEnabledJobs(t *testing.T) {
	journal, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	tests := []struct {
		name string
		opts Options
		jobs int
	}{
		{name: "none", opts: Options{}, jobs: 0},
		{name: "prune", opts: Options{PruneSchedule: "@hourly", Retention: time.Hour}, jobs: 1},
		{name: "prune without retention", opts: Options{PruneSchedule: "@hourly"}, jobs: 0},
		{name: "both", opts: Options{PruneSchedule: "@daily", Retention: time.Hour, ScreenshotSchedule: "*/30 * * * * *"}, jobs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.opts, journal, core.NewInbox(1), nil)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if s.Jobs() != tt.jobs {
				t.Fatalf("expected %d jobs, got %d", tt.jobs, s.Jobs())
			}
		})
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(Options{ScreenshotSchedule: "every tuesday"}, nil, core.NewInbox(1), nil); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}

func TestPruneUsesRetention(t *testing.T) {
	journal, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	ctx := context.Background()
	_ = journal.RecordEvent(ctx, core.ChatMessage{Content: "recent", ChatID: "c"})

	s, err := New(Options{PruneSchedule: "@hourly", Retention: time.Hour}, journal, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	removed, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("recent entries must survive, removed %d", removed)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = s.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 entry removed, got %d", removed)
	}
}

func TestScreenshotQueuesCommand(t *testing.T) {
	inbox := core.NewInbox(1)
	s, err := New(Options{}, nil, inbox, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	s.Screenshot()
	// A full inbox skips without blocking.
	s.Screenshot()

	cmd, ok := inbox.TryNext()
	if !ok || cmd.Kind != core.CommandScreenshot || cmd.Origin != "scheduler" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if inbox.Len() != 0 {
		t.Fatalf("expected one command, %d left", inbox.Len())
	}
}
