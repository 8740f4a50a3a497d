package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Relay.Port != def.Relay.Port || cfg.Relay.Framing != def.Relay.Framing {
		t.Fatalf("unexpected relay config: %+v", cfg.Relay)
	}
	if cfg.Loop.Interval != time.Second || cfg.Loop.MaxFailures != 10 {
		t.Fatalf("unexpected loop config: %+v", cfg.Loop)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
log_level: debug
relay:
  port: 9100
  framing: line
loop:
  interval: 250ms
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if cfg.Relay.Port != 9100 || cfg.Relay.Framing != "line" {
		t.Errorf("unexpected relay config: %+v", cfg.Relay)
	}
	if cfg.Relay.Host != "127.0.0.1" {
		t.Errorf("expected default host to survive, got %s", cfg.Relay.Host)
	}
	if cfg.Loop.Interval != 250*time.Millisecond {
		t.Errorf("expected 250ms interval, got %s", cfg.Loop.Interval)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("relay:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHATRELAY_RELAY_PORT", "9200")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Relay.Port != 9200 {
		t.Fatalf("expected env port 9200, got %d", cfg.Relay.Port)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("relay: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Overrides{RelayPort: 7000, Framing: "line"})

	if cfg.Relay.Port != 7000 || cfg.Relay.Framing != "line" {
		t.Fatalf("overrides not applied: %+v", cfg.Relay)
	}
	if cfg.Relay.Host != "127.0.0.1" || cfg.LogLevel != "info" {
		t.Fatalf("zero overrides should not clobber: %+v", cfg)
	}
	if cfg.Relay.Addr() != "127.0.0.1:7000" {
		t.Fatalf("unexpected addr %s", cfg.Relay.Addr())
	}
}
