package daemon_test

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/somnolab/somno/pkg/daemon"
	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/analysis"
)

func TestServerServesAPI(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := store.Open(filepath.Join(tmpDir, "db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer s.Close()

	svc := daemon.NewService(s, analysis.Options{}, "test")

	srv, err := daemon.NewServer(daemon.Config{
		ListenAddr: "127.0.0.1:0",
		DataDir:    tmpDir,
	}, svc)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/api/v1/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	var status daemon.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("Expected running status")
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	select {
	case err := <-serveErr:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
