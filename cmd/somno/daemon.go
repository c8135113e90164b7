package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/somnolab/somno/pkg/client"
	"github.com/somnolab/somno/pkg/somno/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the somnod daemon",
	Long: `Manage the somnod daemon for assessment history and record ingestion.

The daemon stores sleep records and assessment history, serves analysis
over its stored data, and ingests records from a drop directory and from
wearables over MQTT.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the somnod daemon",
	Long:  `Start the somnod daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the somnod daemon",
	Long:  `Stop the somnod daemon gracefully.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the somnod daemon",
	Long:  `Stop and start the somnod daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the somnod daemon.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

// daemonPaths builds lifecycle paths from the loaded configuration.
func daemonPaths() (client.DaemonPaths, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return client.DaemonPaths{}, nil, fmt.Errorf("loading configuration: %w", err)
	}

	return client.DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Addr:   cfg.Daemon.ListenAddr,
		PID:    cfg.Daemon.PIDPath,
	}, cfg, nil
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths, _, err := daemonPaths()
	if err != nil {
		return err
	}

	printVerbose("starting daemon...")
	if err := client.StartDaemon(paths); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printVerbose("daemon started successfully")
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths, cfg, err := daemonPaths()
	if err != nil {
		return err
	}

	pidPath := daemonPIDPath(cfg)
	printVerbose("checking PID file: %s", pidPath)

	if !client.IsDaemonRunning(pidPath) {
		printVerbose("daemon not running (PID check failed)")
		return errors.New("daemon is not running")
	}

	printVerbose("daemon is running, sending shutdown request...")
	if err := client.StopDaemon(paths); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	_, cfg, err := daemonPaths()
	if err != nil {
		return err
	}

	if client.IsDaemonRunning(daemonPIDPath(cfg)) {
		if err := runDaemonStop(cmd, args); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	if err := runDaemonStart(cmd, args); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	_, cfg, err := daemonPaths()
	if err != nil {
		return err
	}

	if !client.IsDaemonRunning(daemonPIDPath(cfg)) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := client.New(daemonAddr(cfg)).Status(ctx)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}

	printInfo("Daemon status: running")
	printInfo("  Version: %s", status.Version)
	printInfo("  PID:     %d", status.PID)
	printInfo("  Uptime:  %s", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	printInfo("  Memory:  %s", humanize.Bytes(uint64(status.MemoryBytes)))
	printInfo("  Schema:  v%d", status.SchemaVersion)
	printInfo("  Stored:  %d records, %d assessments", status.Records, status.Assessments)

	if status.Ingest.InboxDir != "" {
		printInfo("  Inbox:   %s (watching: %t)", status.Ingest.InboxDir, status.Ingest.WatchActive)
	}
	if status.Ingest.MQTTActive {
		printInfo("  MQTT:    active")
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
