package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr == "" {
		t.Error("default listen address must not be empty")
	}
	if cfg.QueueSize < 1 {
		t.Error("default queue size must be positive")
	}
}

func TestLoadCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := []byte("listen_addr: \":9000\"\nqueue_size: 128\nlobby_idle_timeout_minutes: 10\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != ":9000" {
		t.Errorf("listen addr = %s, want :9000", cfg.ListenAddr)
	}
	if cfg.QueueSize != 128 {
		t.Errorf("queue size = %d, want 128", cfg.QueueSize)
	}
	if cfg.LobbyIdleTimeoutMinutes != 10 {
		t.Errorf("idle timeout = %d, want 10", cfg.LobbyIdleTimeoutMinutes)
	}
}

func TestEnvOverridesListenAddr(t *testing.T) {
	t.Setenv("ARCADE_LISTEN_ADDR", ":7777")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != ":7777" {
		t.Errorf("listen addr = %s, want :7777", cfg.ListenAddr)
	}
}

func TestLoadMissingCustomFileFails(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("missing explicit config file must be an error")
	}
}
