package main

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/logging"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "10MB",
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1000 * 1000,
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
		},
		{
			name: "custom size in gigabytes",
			input: config.RotationConfig{
				MaxSize:    "1GiB",
				MaxAge:     7,
				MaxBackups: 3,
				Daily:      false,
			},
			expected: logging.RotationConfig{
				MaxSize:    1024 * 1024 * 1024,
				MaxAge:     7,
				MaxBackups: 3,
				Daily:      false,
			},
		},
		{
			name: "empty max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "",
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
		},
		{
			name: "invalid max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "invalid",
				MaxAge:     21,
				MaxBackups: 4,
				Daily:      false,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     21,
				MaxBackups: 4,
				Daily:      false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseRotationConfig(tt.input)

			if result.MaxSize != tt.expected.MaxSize {
				t.Errorf("MaxSize = %d, want %d", result.MaxSize, tt.expected.MaxSize)
			}
			if result.MaxAge != tt.expected.MaxAge {
				t.Errorf("MaxAge = %d, want %d", result.MaxAge, tt.expected.MaxAge)
			}
			if result.MaxBackups != tt.expected.MaxBackups {
				t.Errorf("MaxBackups = %d, want %d", result.MaxBackups, tt.expected.MaxBackups)
			}
			if result.Daily != tt.expected.Daily {
				t.Errorf("Daily = %v, want %v", result.Daily, tt.expected.Daily)
			}
		})
	}
}

func TestInitializeLoggingEnsuresDirectories(t *testing.T) {
	// Note: XDG paths are cached at package init time, so we cannot override
	// them with environment variables. Instead, verify that initializeLogging
	// creates the directories at the actual XDG paths.
	err := initializeLogging(nil, nil)
	if err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		t.Fatalf("failed to get config dir: %v", err)
	}
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Errorf("config directory was not created: %s", configDir)
	}

	if _, err := os.Stat(config.DataDir()); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", config.DataDir())
	}

	if _, err := os.Stat(config.StateDir()); os.IsNotExist(err) {
		t.Errorf("state directory was not created: %s", config.StateDir())
	}

	_ = logging.Close()
}

func TestMaybeStartDaemonAlreadyRunning(t *testing.T) {
	tempDir := t.TempDir()
	pidPath := filepath.Join(tempDir, "somnod.pid")

	// Write current process PID to simulate a running daemon
	err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
	if err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	cfg := &config.Config{
		Daemon: config.DaemonConfig{
			AutoStart: true,
			PIDPath:   pidPath,
		},
	}

	if err := maybeStartDaemon(cfg); err != nil {
		t.Errorf("maybeStartDaemon() returned error when daemon is running: %v", err)
	}
}

func TestMaybeStartDaemonDisabled(t *testing.T) {
	cfg := &config.Config{
		Daemon: config.DaemonConfig{
			AutoStart: false,
			PIDPath:   filepath.Join(t.TempDir(), "somnod.pid"),
		},
	}

	if err := maybeStartDaemon(cfg); err != nil {
		t.Errorf("maybeStartDaemon() returned error with auto-start disabled: %v", err)
	}
}

func TestDaemonPIDPathDefault(t *testing.T) {
	cfg := &config.Config{}
	if got := daemonPIDPath(cfg); got != config.DefaultPIDPath() {
		t.Errorf("daemonPIDPath() = %q, want default %q", got, config.DefaultPIDPath())
	}

	cfg.Daemon.PIDPath = "/tmp/custom.pid"
	if got := daemonPIDPath(cfg); got != "/tmp/custom.pid" {
		t.Errorf("daemonPIDPath() = %q, want configured path", got)
	}
}
