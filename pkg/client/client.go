// Package client provides a client for connecting to the somnod daemon.
// It wraps the HTTP API with convenience methods and handles starting the
// daemon on demand.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/somnolab/somno/pkg/daemon"
	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/types"
)

// Client talks to the somnod daemon over its HTTP API.
type Client struct {
	base string
	http *http.Client
}

// DaemonPaths configures paths for daemon lifecycle operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // Path to somnod binary (auto-discovered if empty)
	Addr   string // Daemon listen address
	PID    string // PID file path
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Addr == "" {
		p.Addr = config.DefaultListenAddr
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	return p
}

// New creates a client for a daemon listening on addr.
func New(addr string) *Client {
	return &Client{
		base: "http://" + addr + "/api/v1",
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Assess submits an assessment input to the daemon. The daemon scores it,
// stores the result, and returns the full assessment.
func (c *Client) Assess(ctx context.Context, in types.AssessmentInput) (*assess.Assessment, error) {
	var a assess.Assessment
	if err := c.do(ctx, http.MethodPost, "/assessments", in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssessments returns stored assessments, newest first. A limit of 0
// returns all of them.
func (c *Client) ListAssessments(ctx context.Context, limit int) ([]assess.Assessment, error) {
	path := "/assessments"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp struct {
		Assessments []assess.Assessment `json:"assessments"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Assessments, nil
}

// GetAssessment fetches one assessment by ID.
func (c *Client) GetAssessment(ctx context.Context, id string) (*assess.Assessment, error) {
	var a assess.Assessment
	if err := c.do(ctx, http.MethodGet, "/assessments/"+id, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAssessment removes one assessment by ID.
func (c *Client) DeleteAssessment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/assessments/"+id, nil, nil)
}

// AddRecords stores a batch of sleep records in the daemon.
func (c *Client) AddRecords(ctx context.Context, records []types.SleepRecord) (int, error) {
	var resp struct {
		Stored int `json:"stored"`
	}
	if err := c.do(ctx, http.MethodPost, "/records", records, &resp); err != nil {
		return 0, err
	}
	return resp.Stored, nil
}

// ListRecords returns stored records in chronological order. Zero from/to
// values leave that end of the range open.
func (c *Client) ListRecords(ctx context.Context, from, to time.Time, limit int) ([]types.SleepRecord, error) {
	var params []string
	if !from.IsZero() {
		params = append(params, "from="+from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		params = append(params, "to="+to.Format("2006-01-02"))
	}
	if limit > 0 {
		params = append(params, "limit="+strconv.Itoa(limit))
	}

	path := "/records"
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var resp struct {
		Records []types.SleepRecord `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Analysis asks the daemon for a full analysis report over its stored
// records. window and metric override the daemon's defaults when non-zero.
func (c *Client) Analysis(ctx context.Context, window int, metric string) (*analysis.Report, error) {
	var params []string
	if window > 0 {
		params = append(params, "window="+strconv.Itoa(window))
	}
	if metric != "" {
		params = append(params, "metric="+metric)
	}

	path := "/analysis"
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var report analysis.Report
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Status returns the daemon's health information.
func (c *Client) Status(ctx context.Context) (*daemon.DaemonStatus, error) {
	var status daemon.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/shutdown", nil, nil)
}

// do performs one API request. A non-nil body is sent as JSON; a non-nil
// out receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// apiError extracts the error message from an API error response.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon: %s (HTTP %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon: HTTP %d", resp.StatusCode)
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if the daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts the somnod daemon in the background and waits for it
// to become ready. Idempotent: returns nil if already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if IsDaemonRunning(paths.PID) {
		return nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find somnod: %w", err)
	}

	statusPath := daemon.StatusPath(config.DataDir())

	// Clean up stale status file before starting
	_ = os.Remove(statusPath)

	// Use exec.Command (not CommandContext) intentionally: daemon must outlive caller
	cmd := exec.Command(binary) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Detach so daemon outlives caller
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll the status file for explicit ready or error
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		if status, err := daemon.ReadStatus(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via the API.
// Idempotent: returns nil if the daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !IsDaemonRunning(paths.PID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := paths.Addr
	if status, err := daemon.ReadStatus(daemon.StatusPath(config.DataDir())); err == nil && status.Addr != "" {
		addr = status.Addr
	}

	if err := New(addr).Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	// Wait for daemon to stop
	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the somnod binary path.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	// Try same directory as current executable
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "somnod")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Try standard Go binary locations (GOBIN > GOPATH/bin > $HOME/go/bin)
	for _, dir := range goBinDirs() {
		candidate := filepath.Join(dir, "somnod")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Try PATH
	if path, err := exec.LookPath("somnod"); err == nil {
		return path, nil
	}

	return "", errors.New("somnod not found")
}

// goBinDirs lists the standard Go binary install locations.
func goBinDirs() []string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	return dirs
}

// IsDaemonRunning checks if the daemon is running based on the PID file.
func IsDaemonRunning(pidPath string) bool {
	return daemon.IsDaemonRunning(pidPath)
}
