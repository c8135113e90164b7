package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Format != "pretty" {
		t.Errorf("Format = %q, want %q", cfg.Format, "pretty")
	}

	if cfg.Analysis.AnomalyThreshold != DefaultAnomalyThreshold {
		t.Errorf("Analysis.AnomalyThreshold = %v, want %v", cfg.Analysis.AnomalyThreshold, DefaultAnomalyThreshold)
	}

	if cfg.Analysis.TrendWindow != DefaultTrendWindow {
		t.Errorf("Analysis.TrendWindow = %d, want %d", cfg.Analysis.TrendWindow, DefaultTrendWindow)
	}

	if cfg.Daemon.ListenAddr != DefaultListenAddr {
		t.Errorf("Daemon.ListenAddr = %q, want %q", cfg.Daemon.ListenAddr, DefaultListenAddr)
	}

	if !cfg.Daemon.AutoStart {
		t.Error("Daemon.AutoStart = false, want true")
	}

	if cfg.Ingest.MQTT.Enabled {
		t.Error("Ingest.MQTT.Enabled = true, want false by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "somno")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
format: json
analysis:
  anomaly_threshold: 3.0
  trend_window: 14
ingest:
  inbox_dir: /data/inbox
  mqtt:
    enabled: true
    addr: ":2883"
daemon:
  auto_start: false
  listen_addr: "127.0.0.1:9100"
logging:
  level: debug
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.Analysis.AnomalyThreshold != 3.0 {
		t.Errorf("AnomalyThreshold = %v, want 3.0", cfg.Analysis.AnomalyThreshold)
	}
	if cfg.Analysis.TrendWindow != 14 {
		t.Errorf("TrendWindow = %d, want 14", cfg.Analysis.TrendWindow)
	}
	if cfg.Ingest.InboxDir != "/data/inbox" {
		t.Errorf("InboxDir = %q, want /data/inbox", cfg.Ingest.InboxDir)
	}
	if !cfg.Ingest.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.Ingest.MQTT.Addr != ":2883" {
		t.Errorf("MQTT.Addr = %q, want :2883", cfg.Ingest.MQTT.Addr)
	}
	if cfg.Daemon.AutoStart {
		t.Error("Daemon.AutoStart = true, want false")
	}
	if cfg.Daemon.ListenAddr != "127.0.0.1:9100" {
		t.Errorf("ListenAddr = %q, want 127.0.0.1:9100", cfg.Daemon.ListenAddr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsInboxTilde(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "somno")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := "ingest:\n  inbox_dir: ~/sleep-inbox\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := filepath.Join(tempDir, "sleep-inbox")
	if cfg.Ingest.InboxDir != want {
		t.Errorf("InboxDir = %q, want %q", cfg.Ingest.InboxDir, want)
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, ".config", "somno", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Second call must not fail or overwrite
	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}

	// The written default must round-trip through Load
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault error = %v", err)
	}
	if cfg.Format != "pretty" {
		t.Errorf("Format = %q, want pretty", cfg.Format)
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	got, err := ExpandPath("~/data")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if got != filepath.Join(tempDir, "data") {
		t.Errorf("ExpandPath(~/data) = %q", got)
	}

	got, err = ExpandPath("/absolute/path")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if got != "/absolute/path" {
		t.Errorf("ExpandPath(/absolute/path) = %q", got)
	}
}
