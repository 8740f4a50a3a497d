package core

import "github.com/rs/zerolog"

// Cache remembers the last snapshot of every chat and works out which part
// of a fresh snapshot is new. Scrapes return a rolling window of the last
// messages, so a plain "content differs" check would drop repeated lines.
//
// Cache is not safe for concurrent use; the event loop owns it.
type Cache struct {
	entries map[string]Snapshot
	log     *zerolog.Logger
}

// NewCache creates an empty cache.
func NewCache(logger *zerolog.Logger) *Cache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Cache{
		entries: make(map[string]Snapshot),
		log:     logger,
	}
}

// Has reports whether a baseline exists for chatID.
func (c *Cache) Has(chatID string) bool {
	_, ok := c.entries[chatID]
	return ok
}

// Len returns the number of chats with a baseline.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Check compares snap against the stored snapshot for chatID and returns
// the newly arrived tail. The second result is false when nothing should be
// emitted: first sight of a chat, empty scrapes, unchanged input, or no
// alignment of at least two consecutive messages.
func (c *Cache) Check(chatID string, snap Snapshot) (Snapshot, bool) {
	old, ok := c.entries[chatID]
	if !ok {
		c.log.Info().Str("chat_id", chatID).Int("messages", len(snap)).Msg("new chat baseline")
		c.entries[chatID] = snap.Clone()
		return nil, false
	}

	if len(snap) == 0 {
		c.log.Warn().Str("chat_id", chatID).Msg("empty snapshot ignored")
		return nil, false
	}
	if len(old) == 0 {
		c.log.Warn().Str("chat_id", chatID).Msg("cached snapshot was empty")
		c.entries[chatID] = snap.Clone()
		return nil, false
	}

	if old.Equal(snap) {
		return nil, false
	}

	matched := 0
	for oldPos := 0; oldPos < len(old); oldPos++ {
		if old[oldPos] == snap[matched] {
			matched++
		} else {
			matched = 0
		}

		if oldPos == len(old)-1 {
			break
		}
		if matched == len(snap) {
			// The new window is fully contained in the old one before
			// the old one ended.
			c.log.Debug().Str("chat_id", chatID).Msg("snapshot shorter than match")
			c.entries[chatID] = snap.Clone()
			return nil, false
		}
	}

	c.entries[chatID] = snap.Clone()
	if matched <= 1 {
		c.log.Warn().Str("chat_id", chatID).Int("matched", matched).Msg("snapshot did not align with cache")
		return nil, false
	}
	if matched == len(snap) {
		return nil, false
	}
	return snap[matched:].Clone(), true
}
