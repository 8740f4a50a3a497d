package store

import (
	"context"
	"time"

	"github.com/vovakirdan/chatrelay/internal/core"
)

// CommandStatus is the outcome of a dispatched command.
type CommandStatus string

const (
	CommandStatusOK     CommandStatus = "ok"
	CommandStatusFailed CommandStatus = "failed"
)

// Event is a relayed chat message.
type Event struct {
	ID        int64
	ChatID    string
	Sender    string
	Content   string
	CreatedAt time.Time
}

// CommandRecord is a dispatched subscriber command.
type CommandRecord struct {
	ID        int64
	Kind      string
	ChatID    string
	Content   string
	Origin    string
	Status    CommandStatus
	Error     string
	CreatedAt time.Time
}

// EventStore persists relayed chat messages.
type EventStore interface {
	// RecordEvent stores a message that was broadcast to subscribers.
	RecordEvent(ctx context.Context, msg core.ChatMessage) error

	// ListEvents returns the newest events first. Empty chatID lists all chats.
	ListEvents(ctx context.Context, chatID string, limit int) ([]*Event, error)
}

// CommandStore persists dispatched commands.
type CommandStore interface {
	// RecordCommand stores the outcome of a dispatched command.
	RecordCommand(ctx context.Context, cmd core.Command, status CommandStatus, dispatchErr error) error

	// ListCommands returns the newest commands first.
	ListCommands(ctx context.Context, limit int) ([]*CommandRecord, error)
}

// Journal is the relay's audit trail.
type Journal interface {
	EventStore
	CommandStore

	// Prune deletes entries created before the cutoff and returns how many
	// rows were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases the underlying database.
	Close() error
}
