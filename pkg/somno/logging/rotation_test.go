package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriterBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "somno.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 1024})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	msg := []byte("hello rotation\n")
	n, err := w.Write(msg)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(msg) {
		t.Errorf("Write() = %d bytes, want %d", n, len(msg))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if string(data) != string(msg) {
		t.Errorf("log content = %q, want %q", data, msg)
	}
}

func TestRotatingWriterRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "somno.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 64, Daily: false})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("expected rotated file alongside main log, found %d files", len(entries))
	}
}

func TestRotatingWriterCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "somno.log")

	w, err := NewRotatingWriter(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestRotatingWriterMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "somno.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 32, MaxBackups: 1, Daily: false})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	line := strings.Repeat("y", 30) + "\n"
	for i := 0; i < 6; i++ {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	// Rotated files share a per-second timestamp, so renames within the same
	// second collapse onto one backup. Main log plus at most MaxBackups+1.
	if len(entries) > 3 {
		t.Errorf("expected cleanup to cap backups, found %d files", len(entries))
	}
}
