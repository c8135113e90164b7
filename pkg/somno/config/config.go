package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // Path to somnod binary (auto-discovered if empty)
	ListenAddr string `mapstructure:"listen_addr"`
	PIDPath    string `mapstructure:"pid_path"`
}

// IngestConfig configures record ingestion into the daemon.
type IngestConfig struct {
	// InboxDir is watched for dropped CSV files. Empty disables the watcher.
	InboxDir string `mapstructure:"inbox_dir"`

	// MQTT enables the embedded broker for wearable devices.
	MQTT struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"mqtt"`
}

// DatabaseConfig configures the optional Postgres record source.
type DatabaseConfig struct {
	DSN   string `mapstructure:"dsn"`
	Query string `mapstructure:"query"`
}

// AnalysisConfig tunes the analysis engine.
type AnalysisConfig struct {
	AnomalyThreshold float64 `mapstructure:"anomaly_threshold"`
	TrendWindow      int     `mapstructure:"trend_window"`
}

// Config represents the application configuration.
type Config struct {
	Format   string         `mapstructure:"format"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/somno/config.yaml
//   - $HOME/.config/somno/config.yaml
//
// Environment variables are prefixed with SOMNO_ (e.g., SOMNO_FORMAT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "somno"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "somno"))

	v.SetEnvPrefix("SOMNO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in the inbox dir if present
	if strings.HasPrefix(cfg.Ingest.InboxDir, "~") {
		cfg.Ingest.InboxDir = filepath.Join(homeDir, cfg.Ingest.InboxDir[1:])
	}

	return &cfg, nil
}

// SetDefaults registers every configuration default on the given viper
// instance. The CLI shares this with Load so flag-bound values fall back to
// the same defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("format", "pretty")

	v.SetDefault("analysis.anomaly_threshold", DefaultAnomalyThreshold)
	v.SetDefault("analysis.trend_window", DefaultTrendWindow)

	v.SetDefault("ingest.inbox_dir", "")
	v.SetDefault("ingest.mqtt.enabled", false)
	v.SetDefault("ingest.mqtt.addr", DefaultMQTTAddr)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.query", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"daemon":  "info",
		"ingest":  "info",
		"etl":     "info",
		"assess":  "info",
		"output":  "warn",
		"dataset": "info",
	})

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.listen_addr", DefaultListenAddr)
	v.SetDefault("daemon.pid_path", "") // Empty means use default XDG path
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "somno"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "somno"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Somno Sleep-Health Analyzer Configuration

# Default output format: pretty, plain, table, json, yaml
format: pretty

# Analysis engine tuning
analysis:
  anomaly_threshold: %.1f
  trend_window: %d

# Record ingestion
ingest:
  # Directory watched for dropped CSV files (empty disables the watcher)
  inbox_dir: ""
  # Embedded MQTT broker for wearable devices
  mqtt:
    enabled: false
    addr: "%s"

# Optional Postgres record source for 'somno etl --from-db'
database:
  dsn: ""
  query: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/somno/somno.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    daemon: info
    ingest: info
    etl: info
    assess: info

# Daemon configuration
daemon:
  # Automatically start daemon when running somno commands that need it
  auto_start: true
  # Loopback address the daemon serves on
  listen_addr: "%s"
  # PID file path (empty means use default: $XDG_DATA_HOME/somno/somnod.pid)
  pid_path: ""
`, DefaultAnomalyThreshold, DefaultTrendWindow, DefaultMQTTAddr, DefaultListenAddr)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/somno/ for the store and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "somno")
}

// StateDir returns $XDG_STATE_HOME/somno/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "somno")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "somnod.pid")
}

// DefaultDBPath returns the default store path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "somno.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "somno.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
