package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInboxPreservesOrder(t *testing.T) {
	in := NewInbox(4)
	ctx := context.Background()

	for _, c := range []string{"1", "2", "3"} {
		if err := in.Submit(ctx, Command{Content: c}); err != nil {
			t.Fatalf("submit %s: %v", c, err)
		}
	}

	for _, want := range []string{"1", "2", "3"} {
		cmd, ok := in.TryNext()
		if !ok || cmd.Content != want {
			t.Fatalf("expected %s, got %+v (ok=%v)", want, cmd, ok)
		}
	}
	if _, ok := in.TryNext(); ok {
		t.Fatal("expected empty inbox")
	}
}

func TestInboxSubmitHonoursContext(t *testing.T) {
	in := NewInbox(1)
	if err := in.TrySubmit(Command{}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := in.TrySubmit(Command{}); !errors.Is(err, ErrInboxFull) {
		t.Fatalf("expected ErrInboxFull, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := in.Submit(ctx, Command{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestInboxCloseWakesSubmitters(t *testing.T) {
	in := NewInbox(1)
	_ = in.TrySubmit(Command{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- in.Submit(context.Background(), Command{})
	}()

	time.Sleep(10 * time.Millisecond)
	in.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrInboxClosed) {
			t.Fatalf("expected ErrInboxClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("submitter was not woken by Close")
	}

	if _, ok := in.TryNext(); !ok {
		t.Fatal("pending command must survive Close")
	}
}
