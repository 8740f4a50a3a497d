package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vovakirdan/chatrelay/internal/app"
	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
)

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name    string
		command string
		content string
		sender  string
		wantErr bool
	}{
		{name: "plain", content: "hello", sender: "chatrelay"},
		{name: "plain without content", wantErr: true},
		{name: "screenshot", command: "screenshot", sender: core.SentinelScreenshot},
		{name: "case insensitive", command: "RESTART", sender: core.SentinelRestart},
		{name: "file", command: "file", content: "./a.png", sender: core.SentinelFile},
		{name: "file without path", command: "file", wantErr: true},
		{name: "unknown", command: "reboot", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := buildMessage(tt.command, "chatrelay", "c1", tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Sender != tt.sender || msg.Content != tt.content || msg.ChatID != "c1" {
				t.Fatalf("unexpected message: %+v", msg)
			}
		})
	}
}

func TestTokenCommandMintsValidToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: s3cret\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", path, "--subject", "ops"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	cfg := config.Default()
	cfg.Auth.JWTSecret = "s3cret"
	claims, err := auth.ValidateToken(app.JWTConfig(cfg.Auth), strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}
