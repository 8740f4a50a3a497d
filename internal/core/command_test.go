package core

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		sender string
		kind   CommandKind
	}{
		{SentinelScreenshot, CommandScreenshot},
		{SentinelHTML, CommandDumpHTML},
		{SentinelRestart, CommandRestart},
		{SentinelRefresh, CommandRefresh},
		{SentinelFile, CommandSendFile},
		{"alice", CommandSendMessage},
		{"", CommandSendMessage},
		{"<unknown>", CommandSendMessage},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			msg := ChatMessage{Sender: tt.sender, Content: "body", ChatID: "42"}
			cmd := ParseCommand(msg)
			if cmd.Kind != tt.kind {
				t.Fatalf("expected %v, got %v", tt.kind, cmd.Kind)
			}
			if cmd.ChatID != "42" || cmd.Content != "body" {
				t.Fatalf("payload lost: %+v", cmd)
			}
			if back := cmd.Message(); back != msg {
				t.Fatalf("round trip mismatch: %+v != %+v", back, msg)
			}
		})
	}
}

func TestCommandKindString(t *testing.T) {
	if CommandSendFile.String() != "send_file" {
		t.Fatalf("unexpected name %q", CommandSendFile.String())
	}
	if CommandKind(99).String() != "unknown" {
		t.Fatal("expected unknown for out of range kind")
	}
}
