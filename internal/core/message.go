package core

import "slices"

// ChatMessage is one chat line as seen by the relay. Equality is structural.
type ChatMessage struct {
	Sender  string
	Content string
	ChatID  string
}

// Snapshot is the ordered list of messages visible in one chat after a scrape.
type Snapshot []ChatMessage

// Equal reports whether both snapshots hold the same messages in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	return slices.Equal(s, other)
}

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// ChatOption is an entry of the chat list.
type ChatOption struct {
	ID     string
	Unread bool
}
