package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/dataset"
)

// setupTestStore creates a temporary store for testing.
func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	storePath := filepath.Join(tmpDir, "testdb")
	s, err := store.Open(storePath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s, func() {
		s.Close()
	}
}

// writeSampleCSV drops a valid CSV with n records into dir.
func writeSampleCSV(t *testing.T, dir, name string, n int) string {
	t.Helper()
	gen := dataset.NewGenerator(42, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	path := filepath.Join(dir, name)
	if err := dataset.SaveCSV(path, gen.Generate(n)); err != nil {
		t.Fatalf("failed to write sample csv: %v", err)
	}
	return path
}

// waitForCount polls until the store holds want records or the deadline passes.
func waitForCount(t *testing.T, s *store.Store, want int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := s.CountRecords()
		if err != nil {
			t.Fatalf("CountRecords() error = %v", err)
		}
		if got == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	got, _ := s.CountRecords()
	t.Fatalf("store never reached %d records, have %d", want, got)
}

func TestNewWatcherCreatesInbox(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inbox := filepath.Join(t.TempDir(), "inbox")

	w, err := NewWatcher(s, inbox)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(inbox); err != nil {
		t.Errorf("NewWatcher() did not create inbox directory: %v", err)
	}
	if w.Inbox() != inbox {
		t.Errorf("Inbox() = %q, want %q", w.Inbox(), inbox)
	}
}

func TestSweepIngestsExistingFiles(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inbox := t.TempDir()
	writeSampleCSV(t, inbox, "night-batch.csv", 5)

	w, err := NewWatcher(s, inbox)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ingested, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if ingested != 1 {
		t.Errorf("Sweep() ingested = %d, want 1", ingested)
	}

	count, err := s.CountRecords()
	if err != nil {
		t.Fatalf("CountRecords() error = %v", err)
	}
	if count != 5 {
		t.Errorf("CountRecords() = %d, want 5", count)
	}

	// The file should be renamed so a second sweep skips it.
	if _, err := os.Stat(filepath.Join(inbox, "night-batch.csv.done")); err != nil {
		t.Errorf("Sweep() did not mark ingested file: %v", err)
	}

	ingested, err = w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep() error = %v", err)
	}
	if ingested != 0 {
		t.Errorf("second Sweep() ingested = %d, want 0", ingested)
	}
}

func TestSweepSkipsMalformedFile(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inbox := t.TempDir()
	bad := filepath.Join(inbox, "garbage.csv")
	if err := os.WriteFile(bad, []byte("not,a,sleep\nrecord,at,all\n"), 0o644); err != nil {
		t.Fatalf("failed to write bad file: %v", err)
	}

	w, err := NewWatcher(s, inbox)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ingested, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if ingested != 0 {
		t.Errorf("Sweep() ingested = %d, want 0", ingested)
	}

	if _, err := os.Stat(bad + ".failed"); err != nil {
		t.Errorf("Sweep() did not mark malformed file: %v", err)
	}
}

func TestSweepIgnoresNonCSV(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inbox := t.TempDir()
	note := filepath.Join(inbox, "README.txt")
	if err := os.WriteFile(note, []byte("leave me alone"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	w, err := NewWatcher(s, inbox)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ingested, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if ingested != 0 {
		t.Errorf("Sweep() ingested = %d, want 0", ingested)
	}

	// Untouched.
	if _, err := os.Stat(note); err != nil {
		t.Errorf("Sweep() touched a non-CSV file: %v", err)
	}
}

func TestRunIngestsDroppedFile(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inbox := t.TempDir()

	w, err := NewWatcher(s, inbox)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go w.Run(ctx)

	// Give the watcher time to start.
	time.Sleep(100 * time.Millisecond)

	writeSampleCSV(t, inbox, "drop.csv", 3)

	waitForCount(t, s, 3)
}

func TestRunIngestsFileWrittenInChunks(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inbox := t.TempDir()

	w, err := NewWatcher(s, inbox)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go w.Run(ctx)

	// Give the watcher time to start.
	time.Sleep(100 * time.Millisecond)

	// Simulate a slow copy: the create event fires while the first row is
	// still incomplete, so the first parse attempt sees a truncated file.
	path := filepath.Join(inbox, "slow-copy.csv")
	header := "date,sleep_duration,quality_score,bedtime,wake_time," +
		"activity_level,stress_level,heart_rate,deep_sleep_pct,rem_sleep_pct,light_sleep_pct\n"
	if err := os.WriteFile(path, []byte(header+"2025-01-10,7.5,80"), 0o644); err != nil {
		t.Fatalf("failed to write partial file: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to reopen file: %v", err)
	}
	if _, err := f.WriteString(",23.0,6.5,45,4,62,20,24,56\n"); err != nil {
		t.Fatalf("failed to complete file: %v", err)
	}
	f.Close()

	waitForCount(t, s, 1)
}

func TestRunContextCancellation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	w, err := NewWatcher(s, t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Run returned after cancellation
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return after context cancellation")
	}
}

func TestClose(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	w, err := NewWatcher(s, t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Calling Close again should not panic.
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
