package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnolab/somno/pkg/somno/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage somno configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/somno/config.yaml (if set)
  2. ~/.config/somno/config.yaml

Environment variables can override config file settings using the SOMNO_ prefix:
  SOMNO_FORMAT=json
  SOMNO_ANALYSIS_TREND_WINDOW=14
  SOMNO_DAEMON_LISTEN_ADDR=127.0.0.1:9465`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("format:                     %s\n", cfg.Format)
	fmt.Printf("analysis.anomaly_threshold: %.1f\n", cfg.Analysis.AnomalyThreshold)
	fmt.Printf("analysis.trend_window:      %d\n", cfg.Analysis.TrendWindow)
	fmt.Printf("ingest.inbox_dir:           %s\n", orNone(cfg.Ingest.InboxDir))
	fmt.Printf("ingest.mqtt.enabled:        %t\n", cfg.Ingest.MQTT.Enabled)
	fmt.Printf("ingest.mqtt.addr:           %s\n", cfg.Ingest.MQTT.Addr)
	fmt.Printf("database.dsn:               %s\n", orNone(redactDSN(cfg.Database.DSN)))
	fmt.Printf("logging.level:              %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:               %s\n", orDefault(cfg.Logging.Path, config.DefaultLogPath()))
	fmt.Printf("daemon.auto_start:          %t\n", cfg.Daemon.AutoStart)
	fmt.Printf("daemon.listen_addr:         %s\n", cfg.Daemon.ListenAddr)
	fmt.Printf("daemon.pid_path:            %s\n", orDefault(cfg.Daemon.PIDPath, config.DefaultPIDPath()))

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"SOMNO_FORMAT",
		"SOMNO_ANALYSIS_ANOMALY_THRESHOLD",
		"SOMNO_ANALYSIS_TREND_WINDOW",
		"SOMNO_INGEST_INBOX_DIR",
		"SOMNO_INGEST_MQTT_ENABLED",
		"SOMNO_INGEST_MQTT_ADDR",
		"SOMNO_DATABASE_DSN",
		"SOMNO_DATABASE_QUERY",
		"SOMNO_LOGGING_LEVEL",
		"SOMNO_DAEMON_AUTO_START",
		"SOMNO_DAEMON_LISTEN_ADDR",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'somno config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// redactDSN hides the password portion of a Postgres DSN.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	idx := strings.Index(strings.ToLower(dsn), "password=")
	if idx < 0 {
		return dsn
	}
	end := idx + len("password=")
	for end < len(dsn) && dsn[end] != ' ' {
		end++
	}
	return dsn[:idx+len("password=")] + "****" + dsn[end:]
}
