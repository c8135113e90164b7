package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/somnolab/somno/pkg/client"
	"github.com/somnolab/somno/pkg/daemon"
	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/logging"
)

// initializeLogging is the PersistentPreRunE hook. It prepares the XDG
// directories and brings up file logging from the loaded configuration.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("ensuring config directory: %w", err)
	}
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("ensuring data directory: %w", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		return fmt.Errorf("ensuring state directory: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	return nil
}

// parseRotationConfig converts the config package's string-based rotation
// settings into the logging package's byte counts. Bad sizes fall back to
// the 10MB default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(10 * 1024 * 1024)
	if rc.MaxSize != "" {
		if parsed, err := humanize.ParseBytes(rc.MaxSize); err == nil {
			maxSize = int64(parsed)
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

// maybeStartDaemon starts somnod if auto-start is enabled and it is not
// already running.
func maybeStartDaemon(cfg *config.Config) error {
	if !cfg.Daemon.AutoStart {
		return nil
	}

	paths := client.DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Addr:   cfg.Daemon.ListenAddr,
		PID:    cfg.Daemon.PIDPath,
	}

	if client.IsDaemonRunning(daemonPIDPath(cfg)) {
		return nil
	}

	printVerbose("starting somnod...")
	return client.StartDaemon(paths)
}

// daemonPIDPath resolves the configured PID path, falling back to the
// default XDG location.
func daemonPIDPath(cfg *config.Config) string {
	if cfg.Daemon.PIDPath != "" {
		return cfg.Daemon.PIDPath
	}
	return config.DefaultPIDPath()
}

// daemonAddr resolves the daemon's listen address, preferring the address
// recorded in its status file over the configured one.
func daemonAddr(cfg *config.Config) string {
	if status, err := daemon.ReadStatus(daemon.StatusPath(config.DataDir())); err == nil && status.Addr != "" {
		return status.Addr
	}
	if cfg.Daemon.ListenAddr != "" {
		return cfg.Daemon.ListenAddr
	}
	return config.DefaultListenAddr
}
