package core

import "testing"

func msgs(chatID string, contents ...string) Snapshot {
	out := make(Snapshot, 0, len(contents))
	for _, c := range contents {
		out = append(out, ChatMessage{Sender: "bob", Content: c, ChatID: chatID})
	}
	return out
}

func TestCacheFirstSightReturnsNothing(t *testing.T) {
	c := NewCache(nil)

	if got, ok := c.Check("c1", msgs("c1", "a", "b", "c")); ok || got != nil {
		t.Fatalf("expected no messages on first sight, got %v", got)
	}
	if !c.Has("c1") {
		t.Fatal("expected baseline to be stored")
	}
}

func TestCacheUnchangedSnapshotIsIdempotent(t *testing.T) {
	c := NewCache(nil)
	snap := msgs("c1", "a", "b", "c")

	c.Check("c1", snap)
	for i := 0; i < 3; i++ {
		if got, ok := c.Check("c1", snap); ok {
			t.Fatalf("iteration %d: expected nothing new, got %v", i, got)
		}
	}
}

func TestCacheAppendAfterTwoMatches(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "a", "b"))

	got, ok := c.Check("c1", msgs("c1", "a", "b", "c"))
	if !ok {
		t.Fatal("expected a new message")
	}
	if len(got) != 1 || got[0].Content != "c" {
		t.Fatalf("unexpected tail: %v", got)
	}
}

func TestCacheAppendWithoutTwoMatchesIsDropped(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "x", "a", "b"))

	// Only the last old message lines up with the head of the new window.
	if got, ok := c.Check("c1", msgs("c1", "b", "c")); ok {
		t.Fatalf("expected no confident match, got %v", got)
	}
}

func TestCacheSingleElementGap(t *testing.T) {
	c := NewCache(nil)

	if _, ok := c.Check("c1", msgs("c1", "hi")); ok {
		t.Fatal("baseline must not emit")
	}
	// "there" is genuinely new but one matched element is not enough.
	if got, ok := c.Check("c1", msgs("c1", "hi", "there")); ok {
		t.Fatalf("expected single-element gap to return nothing, got %v", got)
	}
	// The stored snapshot was still replaced, so the next message aligns.
	got, ok := c.Check("c1", msgs("c1", "hi", "there", "again"))
	if !ok || len(got) != 1 || got[0].Content != "again" {
		t.Fatalf("expected [again], got %v (ok=%v)", got, ok)
	}
}

func TestCacheRollingWindow(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "a", "b", "c", "d"))

	got, ok := c.Check("c1", msgs("c1", "b", "c", "d", "e", "f"))
	if !ok {
		t.Fatal("expected new messages")
	}
	if len(got) != 2 || got[0].Content != "e" || got[1].Content != "f" {
		t.Fatalf("unexpected tail: %v", got)
	}
}

func TestCacheRepeatedMessagesAreNotSwallowed(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "ok", "ok"))

	got, ok := c.Check("c1", msgs("c1", "ok", "ok", "ok"))
	if !ok || len(got) != 1 || got[0].Content != "ok" {
		t.Fatalf("expected the repeated message, got %v (ok=%v)", got, ok)
	}
}

func TestCacheEmptySnapshots(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "a", "b"))

	if _, ok := c.Check("c1", nil); ok {
		t.Fatal("empty scrape must not emit")
	}
	// The empty scrape did not wipe the baseline.
	got, ok := c.Check("c1", msgs("c1", "a", "b", "c"))
	if !ok || len(got) != 1 || got[0].Content != "c" {
		t.Fatalf("expected [c] after empty scrape, got %v", got)
	}

	c.Check("c2", Snapshot{})
	if _, ok := c.Check("c2", msgs("c2", "a", "b")); ok {
		t.Fatal("empty baseline must not emit")
	}
	got, ok = c.Check("c2", msgs("c2", "a", "b", "c"))
	if !ok || len(got) != 1 {
		t.Fatalf("expected baseline to be replaced, got %v", got)
	}
}

func TestCacheShorterSnapshotAborts(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "a", "b", "c", "d"))

	if got, ok := c.Check("c1", msgs("c1", "a", "b")); ok {
		t.Fatalf("expected abort on shorter snapshot, got %v", got)
	}
}

func TestCacheDoesNotAliasInput(t *testing.T) {
	c := NewCache(nil)
	snap := msgs("c1", "a", "b")
	c.Check("c1", snap)

	snap[0].Content = "mutated"
	snap[1].Content = "mutated"

	got, ok := c.Check("c1", msgs("c1", "a", "b", "c"))
	if !ok || len(got) != 1 || got[0].Content != "c" {
		t.Fatalf("cache state changed through caller mutation: %v", got)
	}

	next := msgs("c1", "a", "b", "c", "d")
	tail, _ := c.Check("c1", next)
	tail[0].Content = "mutated"
	if next[3].Content != "d" {
		t.Fatal("returned tail aliases the input snapshot")
	}
}

func TestCacheChatsAreIndependent(t *testing.T) {
	c := NewCache(nil)
	c.Check("c1", msgs("c1", "a", "b"))
	c.Check("c2", msgs("c2", "x", "y"))

	if _, ok := c.Check("c2", msgs("c2", "a", "b", "c")); ok {
		t.Fatal("chat c2 must not align against c1 history")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached chats, got %d", c.Len())
	}
}
