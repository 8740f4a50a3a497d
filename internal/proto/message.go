package proto

import "github.com/vovakirdan/chatrelay/internal/core"

// Message is the JSON object exchanged with subscribers in both directions.
// Inbound, Sender doubles as a command selector (see core.ParseCommand).
type Message struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	ChatID  string `json:"chat_id"`
}

// FromChatMessage converts a core message to its wire shape.
func FromChatMessage(m core.ChatMessage) Message {
	return Message{Sender: m.Sender, Content: m.Content, ChatID: m.ChatID}
}

// ChatMessage converts the wire message to the core type.
func (m Message) ChatMessage() core.ChatMessage {
	return core.ChatMessage{Sender: m.Sender, Content: m.Content, ChatID: m.ChatID}
}

// ToCommand normalizes an inbound message and interprets it as a command
// issued by the subscriber origin.
func ToCommand(m Message, origin string) core.Command {
	m.Content = Clean(m.Content)
	cmd := core.ParseCommand(m.ChatMessage())
	cmd.Origin = origin
	return cmd
}
