package browser

import (
	"net/url"
	"strings"

	"github.com/vovakirdan/chatrelay/internal/core"
)

// chatIDFromURL returns the last non-empty path segment of a chat URL,
// e.g. "https://www.messenger.com/t/100042/" yields "100042".
func chatIDFromURL(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// row is one rendered message before senders are resolved. Sender is empty
// when the site grouped the row under the previous avatar.
type row struct {
	Content string
	Sender  string
}

// assignSenders resolves grouped rows. Consecutive messages from one person
// only carry the avatar on the last row of the group, so rows without a
// sender wait for the next row that has one. Trailing rows that never get a
// sender are dropped.
func assignSenders(chatID string, rows []row) core.Snapshot {
	out := make(core.Snapshot, 0, len(rows))
	var pending []string

	for _, r := range rows {
		if r.Sender == "" {
			pending = append(pending, r.Content)
			continue
		}
		for _, content := range pending {
			out = append(out, core.ChatMessage{Sender: r.Sender, Content: content, ChatID: chatID})
		}
		pending = pending[:0]
		out = append(out, core.ChatMessage{Sender: r.Sender, Content: r.Content, ChatID: chatID})
	}
	return out
}

// stripVariationSelectors removes U+FE0F so emoji-only messages compare
// equal across renders.
func stripVariationSelectors(s string) string {
	return strings.ReplaceAll(s, "\uFE0F", "")
}
