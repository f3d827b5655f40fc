package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
}

func TestLoadFromPath_ParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
log_level: debug
ipc:
  socket_path: /tmp/custom.sock
metrics:
  enabled: false
  listen: ""
discovery:
  debug_interval: 250ms
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.IPC.SocketPath != "/tmp/custom.sock" {
		t.Errorf("IPC.SocketPath = %q, want /tmp/custom.sock", cfg.IPC.SocketPath)
	}
	if cfg.Discovery.DebugInterval != 250*time.Millisecond {
		t.Errorf("Discovery.DebugInterval = %v, want 250ms", cfg.Discovery.DebugInterval)
	}
}

func TestLoadFromPath_RejectsInvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: verbose\n"), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for invalid log_level")
	}
}

func TestLoadFromPath_RejectsMetricsEnabledWithoutListen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "metrics:\n  enabled: true\n  listen: \"\"\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error when metrics enabled with empty listen address")
	}
}

func TestResolveSocketPath_FallsBackToRuntimeDefault(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	cfg := Default()
	got, err := cfg.ResolveSocketPath()
	if err != nil {
		t.Fatalf("ResolveSocketPath() error: %v", err)
	}
	want := filepath.Join(td, "tilewm.sock")
	if got != want {
		t.Errorf("ResolveSocketPath() = %q, want %q", got, want)
	}
}

func TestResolveSocketPath_PrefersOverride(t *testing.T) {
	cfg := Default()
	cfg.IPC.SocketPath = "/tmp/override.sock"
	got, err := cfg.ResolveSocketPath()
	if err != nil {
		t.Fatalf("ResolveSocketPath() error: %v", err)
	}
	if got != "/tmp/override.sock" {
		t.Errorf("ResolveSocketPath() = %q, want override", got)
	}
}
