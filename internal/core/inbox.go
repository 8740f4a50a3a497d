package core

import (
	"context"
	"sync"
)

// DefaultInboxSize is the capacity of the shared inbound command queue.
const DefaultInboxSize = 100

// Inbox is the bounded queue every transport submits commands to. The event
// loop is its only consumer. Commands from one producer keep their order.
type Inbox struct {
	ch chan Command

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewInbox creates an inbox with the given capacity.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		ch:   make(chan Command, size),
		done: make(chan struct{}),
	}
}

// Submit enqueues cmd, waiting for a free slot until ctx is done or the
// inbox is closed.
func (i *Inbox) Submit(ctx context.Context, cmd Command) error {
	i.mu.RLock()
	closed := i.closed
	i.mu.RUnlock()
	if closed {
		return ErrInboxClosed
	}

	select {
	case i.ch <- cmd:
		return nil
	case <-i.done:
		return ErrInboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues cmd without waiting.
func (i *Inbox) TrySubmit(cmd Command) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return ErrInboxClosed
	}
	select {
	case i.ch <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

// TryNext pops the oldest pending command, if any.
func (i *Inbox) TryNext() (Command, bool) {
	select {
	case cmd := <-i.ch:
		return cmd, true
	default:
		return Command{}, false
	}
}

// Len returns the number of pending commands.
func (i *Inbox) Len() int {
	return len(i.ch)
}

// Close rejects further submissions and wakes blocked submitters. Pending
// commands can still be drained.
func (i *Inbox) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	close(i.done)
}
