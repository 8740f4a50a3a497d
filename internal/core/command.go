package core

// CommandKind describes what a subscriber wants the scraper to do.
type CommandKind int

const (
	// CommandSendMessage types Content into chat ChatID.
	CommandSendMessage CommandKind = iota
	// CommandSendFile uploads the file at path Content into chat ChatID.
	CommandSendFile
	// CommandScreenshot captures a diagnostic screenshot.
	CommandScreenshot
	// CommandDumpHTML captures a diagnostic page dump.
	CommandDumpHTML
	// CommandRestart ends the current scraper session.
	CommandRestart
	// CommandRefresh reloads the scraped page.
	CommandRefresh
)

// Sender values that select a control command on the wire.
const (
	SentinelScreenshot = "<screenshot>"
	SentinelHTML       = "<html>"
	SentinelRestart    = "<restart>"
	SentinelRefresh    = "<refresh>"
	SentinelFile       = "<file>"
)

var kindNames = map[CommandKind]string{
	CommandSendMessage: "send_message",
	CommandSendFile:    "send_file",
	CommandScreenshot:  "screenshot",
	CommandDumpHTML:    "dump_html",
	CommandRestart:     "restart",
	CommandRefresh:     "refresh",
}

func (k CommandKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is a request from a subscriber, routed to the scraper by the event loop.
type Command struct {
	Kind    CommandKind
	ChatID  string
	Content string
	// Sender is the sender field as received; kept for ordinary messages.
	Sender string
	// Origin identifies the subscriber that issued the command.
	Origin string
}

// ParseCommand interprets the sender field of an inbound message.
func ParseCommand(msg ChatMessage) Command {
	cmd := Command{
		ChatID:  msg.ChatID,
		Content: msg.Content,
		Sender:  msg.Sender,
	}
	switch msg.Sender {
	case SentinelScreenshot:
		cmd.Kind = CommandScreenshot
	case SentinelHTML:
		cmd.Kind = CommandDumpHTML
	case SentinelRestart:
		cmd.Kind = CommandRestart
	case SentinelRefresh:
		cmd.Kind = CommandRefresh
	case SentinelFile:
		cmd.Kind = CommandSendFile
	default:
		cmd.Kind = CommandSendMessage
	}
	return cmd
}

// Message maps the command back to its wire shape.
func (c Command) Message() ChatMessage {
	msg := ChatMessage{ChatID: c.ChatID, Content: c.Content, Sender: c.Sender}
	switch c.Kind {
	case CommandScreenshot:
		msg.Sender = SentinelScreenshot
	case CommandDumpHTML:
		msg.Sender = SentinelHTML
	case CommandRestart:
		msg.Sender = SentinelRestart
	case CommandRefresh:
		msg.Sender = SentinelRefresh
	case CommandSendFile:
		msg.Sender = SentinelFile
	}
	return msg
}
