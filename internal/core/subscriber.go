package core

import (
	"sync"
	"time"
)

// DefaultSubscriberBuffer is the outbound queue size of a subscriber.
const DefaultSubscriberBuffer = 100

// Subscriber is a connected peer as seen by the core layer. The transport
// owns the connection; the registry only holds the subscriber to push events.
type Subscriber struct {
	ID          string
	Remote      string
	Transport   string
	ConnectedAt time.Time
	Events      chan ChatMessage

	done      chan struct{}
	closeOnce sync.Once
}

// NewSubscriber constructs a subscriber with an initialized outbound queue.
func NewSubscriber(id, remote, transport string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Subscriber{
		ID:          id,
		Remote:      remote,
		Transport:   transport,
		ConnectedAt: time.Now(),
		Events:      make(chan ChatMessage, buffer),
		done:        make(chan struct{}),
	}
}

// Close marks the subscriber as gone. The next broadcast prunes it.
// Events is never closed so a racing broadcast cannot panic.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the subscriber has been closed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether Close has been called.
func (s *Subscriber) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

type deliveryResult int

const (
	delivered deliveryResult = iota
	dropped
	gone
)

func (s *Subscriber) deliver(msg ChatMessage) deliveryResult {
	if s.Closed() {
		return gone
	}
	select {
	case s.Events <- msg:
		return delivered
	default:
		// Slow consumer.
		return dropped
	}
}
