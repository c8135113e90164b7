// Package main provides the entry point for the somnod daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/somnolab/somno/pkg/daemon"
	"github.com/somnolab/somno/pkg/daemon/ingest"
	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/logging"
)

// Build-time variables set via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "somnod: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()
	log := logging.Get("daemon")

	dataDir := config.DataDir()
	dbPath := config.DefaultDBPath()
	statusPath := daemon.StatusPath(dataDir)
	pidPath := cfg.Daemon.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}

	// A crashed daemon leaves behind a PID file, status file, and Badger
	// lock. Clean those up; bail if a daemon is actually running.
	if err := daemon.RecoverFromStaleDaemon(pidPath, dbPath, dataDir); err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	migrated, err := st.Migrate(context.Background(), func(p store.MigrationProgress) {
		log.Info("migrating store",
			"from", p.FromVersion,
			"to", p.ToVersion,
			"entries", fmt.Sprintf("%d/%d", p.EntriesDone, p.EntriesTotal))
	})
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("store migration failed: %w", err)
	}
	if migrated > 0 {
		log.Info("store migration complete", "steps", migrated)
	}

	svc := daemon.NewService(st, analysis.Options{
		TrendWindow:      cfg.Analysis.TrendWindow,
		AnomalyThreshold: cfg.Analysis.AnomalyThreshold,
	}, version)

	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()

	var info daemon.IngestInfo
	var watcher *ingest.Watcher
	if cfg.Ingest.InboxDir != "" {
		watcher, err = ingest.NewWatcher(st, cfg.Ingest.InboxDir)
		if err != nil {
			log.Warn("inbox watcher unavailable", "dir", cfg.Ingest.InboxDir, "error", err)
		} else {
			info.InboxDir = watcher.Inbox()
			info.WatchActive = true
			if n, err := watcher.Sweep(ingestCtx); err != nil {
				log.Warn("initial inbox sweep failed", "error", err)
			} else if n > 0 {
				log.Info("ingested records from inbox", "files", n)
			}
			go watcher.Run(ingestCtx)
		}
	}

	var broker *ingest.Broker
	if cfg.Ingest.MQTT.Enabled {
		addr := cfg.Ingest.MQTT.Addr
		if addr == "" {
			addr = config.DefaultMQTTAddr
		}
		broker, err = ingest.NewBroker(st, addr)
		if err != nil {
			log.Warn("mqtt broker unavailable", "addr", addr, "error", err)
		} else {
			info.MQTTActive = true
			go func() {
				if err := broker.Serve(); err != nil {
					log.Error("mqtt broker stopped", "error", err)
				}
			}()
			log.Info("mqtt broker listening", "addr", broker.Addr())
		}
	}
	svc.SetIngestInfo(info)

	srv, err := daemon.NewServer(daemon.Config{
		ListenAddr: cfg.Daemon.ListenAddr,
		DataDir:    dataDir,
	}, svc)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := daemon.RemovePIDFile(pidPath); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
	}()

	if err := daemon.WriteStatusReady(statusPath, srv.Addr()); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	defer func() { _ = daemon.RemoveStatus(statusPath) }()

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			log.Info("shutting down")
			stopIngest()
			if watcher != nil {
				_ = watcher.Close()
			}
			if broker != nil {
				_ = broker.Close()
			}
			if err := srv.Close(); err != nil {
				log.Warn("error during shutdown", "error", err)
			}
		})
	}
	svc.OnShutdown(shutdown)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		shutdown()
	}()

	log.Info("somnod listening", "addr", srv.Addr(), "version", version)
	return srv.Serve()
}

// initLogging configures file logging from the loaded config.
func initLogging(cfg *config.Config) error {
	rotation := logging.RotationConfig{
		MaxAge:     cfg.Logging.Rotation.MaxAge,
		MaxBackups: cfg.Logging.Rotation.MaxBackups,
		Daily:      cfg.Logging.Rotation.Daily,
		MaxSize:    int64(10 * 1024 * 1024),
	}
	if size, err := humanize.ParseBytes(cfg.Logging.Rotation.MaxSize); err == nil && size > 0 {
		rotation.MaxSize = int64(size)
	}

	return logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   rotation,
		Components: cfg.Logging.Components,
	})
}
