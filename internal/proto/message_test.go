package proto

import (
	"testing"

	"github.com/vovakirdan/chatrelay/internal/core"
)

func TestToCommandCleansContent(t *testing.T) {
	cmd := ToCommand(Message{Sender: "bot", Content: "café über", ChatID: "7"}, "sub-1")

	if cmd.Kind != core.CommandSendMessage {
		t.Fatalf("unexpected kind %v", cmd.Kind)
	}
	if cmd.Content != "cafe uber" {
		t.Fatalf("expected transliterated content, got %q", cmd.Content)
	}
	if cmd.Origin != "sub-1" || cmd.ChatID != "7" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestToCommandSentinel(t *testing.T) {
	cmd := ToCommand(Message{Sender: core.SentinelFile, Content: "/tmp/a.png", ChatID: "7"}, "")
	if cmd.Kind != core.CommandSendFile || cmd.Content != "/tmp/a.png" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestCleanKeepsASCII(t *testing.T) {
	in := "plain text {with} <symbols> & 123"
	if got := Clean(in); got != in {
		t.Fatalf("ASCII input changed: %q", got)
	}
}
