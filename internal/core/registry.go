package core

import (
	"sync"
	"time"
)

// BroadcastResult summarizes one broadcast pass.
type BroadcastResult struct {
	Delivered int
	Dropped   int
	Pruned    int
}

// SubscriberInfo is a read-only view of a registered subscriber.
type SubscriberInfo struct {
	ID          string
	Remote      string
	Transport   string
	ConnectedAt time.Time
	Queued      int
}

// Registry holds the live subscribers and fans events out to them.
type Registry struct {
	mu   sync.Mutex
	subs []*Subscriber
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a subscriber to the live set.
func (r *Registry) Register(s *Subscriber) {
	r.mu.Lock()
	r.subs = append(r.subs, s)
	r.mu.Unlock()
}

// Broadcast sends msg to every registered subscriber. Closed subscribers are
// removed in the same pass. Sends never block.
func (r *Registry) Broadcast(msg ChatMessage) BroadcastResult {
	var res BroadcastResult

	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.subs[:0]
	for _, s := range r.subs {
		switch s.deliver(msg) {
		case delivered:
			res.Delivered++
		case dropped:
			res.Dropped++
		case gone:
			res.Pruned++
			continue
		}
		live = append(live, s)
	}
	clear(r.subs[len(live):])
	r.subs = live

	return res
}

// Len returns the number of registered subscribers, including closed ones
// not yet pruned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Active returns the number of registered subscribers that are still open.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.subs {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// List returns a view of the registered subscribers that are still open.
func (r *Registry) List() []SubscriberInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SubscriberInfo, 0, len(r.subs))
	for _, s := range r.subs {
		if s.Closed() {
			continue
		}
		out = append(out, SubscriberInfo{
			ID:          s.ID,
			Remote:      s.Remote,
			Transport:   s.Transport,
			ConnectedAt: s.ConnectedAt,
			Queued:      len(s.Events),
		})
	}
	return out
}
