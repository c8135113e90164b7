// Package ingest feeds sleep records into the daemon store from external
// sources: a watched inbox directory of CSV drops and an embedded MQTT
// broker for tracker devices.
package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/dataset"
	"github.com/somnolab/somno/pkg/somno/etl"
	"github.com/somnolab/somno/pkg/somno/logging"
)

// Watcher watches an inbox directory and ingests CSV files dropped into it.
// Files that ingest cleanly are renamed with a ".done" suffix so a restart
// does not ingest them twice; malformed files get a ".failed" suffix.
type Watcher struct {
	store   *store.Store
	watcher *fsnotify.Watcher
	inbox   string

	mu     sync.Mutex
	closed bool
}

// NewWatcher creates a watcher over the inbox directory, creating the
// directory if needed.
func NewWatcher(s *store.Store, inbox string) (*Watcher, error) {
	absInbox, err := filepath.Abs(inbox)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absInbox, 0755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(absInbox); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		store:   s,
		watcher: fsw,
		inbox:   absInbox,
	}, nil
}

// Inbox returns the watched directory.
func (w *Watcher) Inbox() string {
	return w.inbox
}

// Sweep ingests CSV files already present in the inbox. It is called once
// at startup to pick up files dropped while the daemon was down.
func (w *Watcher) Sweep(ctx context.Context) (int, error) {
	var ingested int

	conf := fastwalk.Config{
		Follow: false,
	}

	err := fastwalk.Walk(&conf, w.inbox, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.IsDir() || !isIngestible(path) {
			return nil
		}

		if w.ingestFile(path) {
			ingested++
		}
		return nil
	})
	if err != nil {
		return ingested, err
	}

	logging.Get("ingest").Info("inbox sweep complete", "dir", w.inbox, "files", ingested)
	return ingested, nil
}

// Run starts the event loop. It blocks until the context is cancelled or
// the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	log := logging.Get("ingest")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isIngestible(event.Name) {
				continue
			}
			w.ingestFile(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}

// parseRetryDelay gives a writer still copying a file into the inbox time
// to finish before the file is declared malformed.
const parseRetryDelay = 200 * time.Millisecond

// ingestFile loads one CSV file into the store. Reports whether ingestion
// succeeded.
func (w *Watcher) ingestFile(path string) bool {
	log := logging.Get("ingest")

	records, err := dataset.LoadCSV(path)
	if err != nil {
		// A create event can fire mid-copy, so a parse failure may just
		// be a partial file. Wait and try once more.
		time.Sleep(parseRetryDelay)
		if _, statErr := os.Stat(path); statErr != nil {
			// Gone, e.g. already ingested off an earlier event
			return false
		}
		records, err = dataset.LoadCSV(path)
	}
	if err != nil {
		log.Warn("skipping malformed inbox file", "file", path, "error", err)
		w.markFile(path, ".failed")
		return false
	}

	records = etl.New(records).Clean().Records()
	if len(records) == 0 {
		log.Warn("skipping empty inbox file", "file", path)
		w.markFile(path, ".failed")
		return false
	}

	if err := w.store.PutRecordBatch(records); err != nil {
		log.Error("failed to store inbox records", "file", path, "error", err)
		return false
	}
	if _, err := w.store.RefreshDataMeta(); err != nil {
		log.Warn("failed to refresh counts", "error", err)
	}

	log.Info("ingested inbox file", "file", path, "records", len(records))
	w.markFile(path, ".done")
	return true
}

// markFile renames an inbox file so it is not picked up again.
func (w *Watcher) markFile(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		logging.Get("ingest").Warn("failed to mark inbox file", "file", path, "error", err)
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}

// isIngestible reports whether a path looks like a fresh CSV drop.
func isIngestible(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
