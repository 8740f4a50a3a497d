package http

import (
	"time"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// SubscriberResponse describes one connected subscriber.
type SubscriberResponse struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	Transport   string    `json:"transport"`
	ConnectedAt time.Time `json:"connected_at"`
	Queued      int       `json:"queued"`
}

// EventResponse is one journaled chat message.
type EventResponse struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chat_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CommandResponse is one journaled command outcome.
type CommandResponse struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	ChatID    string    `json:"chat_id"`
	Content   string    `json:"content"`
	Origin    string    `json:"origin"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func subscribersToResponse(subs []core.SubscriberInfo) []SubscriberResponse {
	out := make([]SubscriberResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubscriberResponse{
			ID:          s.ID,
			Remote:      s.Remote,
			Transport:   s.Transport,
			ConnectedAt: s.ConnectedAt,
			Queued:      s.Queued,
		})
	}
	return out
}

func eventsToResponse(events []*store.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			ID:        ev.ID,
			ChatID:    ev.ChatID,
			Sender:    ev.Sender,
			Content:   ev.Content,
			CreatedAt: ev.CreatedAt,
		})
	}
	return out
}

func commandsToResponse(records []*store.CommandRecord) []CommandResponse {
	out := make([]CommandResponse, 0, len(records))
	for _, r := range records {
		out = append(out, CommandResponse{
			ID:        r.ID,
			Kind:      r.Kind,
			ChatID:    r.ChatID,
			Content:   r.Content,
			Origin:    r.Origin,
			Status:    string(r.Status),
			Error:     r.Error,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
