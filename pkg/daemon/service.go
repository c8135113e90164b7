package daemon

import (
	"errors"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"

	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/logging"
	"github.com/somnolab/somno/pkg/somno/types"
)

// queryDateLayout is the date format accepted in from/to query parameters.
const queryDateLayout = "2006-01-02"

// IngestInfo describes the state of the daemon's ingest sources.
type IngestInfo struct {
	InboxDir    string `json:"inbox_dir,omitempty"`
	WatchActive bool   `json:"watch_active"`
	MQTTActive  bool   `json:"mqtt_active"`
}

// Service implements the daemon HTTP API.
type Service struct {
	store     *store.Store
	analysis  analysis.Options
	startTime time.Time
	version   string

	mu         sync.RWMutex
	ingestInfo IngestInfo
	shutdownFn func()
}

// NewService creates a new API service backed by the store.
func NewService(s *store.Store, opts analysis.Options, version string) *Service {
	return &Service{
		store:     s,
		analysis:  opts,
		startTime: time.Now(),
		version:   version,
	}
}

// SetIngestInfo records the current ingest source state for status reporting.
func (s *Service) SetIngestInfo(info IngestInfo) {
	s.mu.Lock()
	s.ingestInfo = info
	s.mu.Unlock()
}

// OnShutdown registers the function invoked by a shutdown request.
func (s *Service) OnShutdown(fn func()) {
	s.mu.Lock()
	s.shutdownFn = fn
	s.mu.Unlock()
}

// Routes registers all API routes on the engine.
func (s *Service) Routes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/assessments", s.CreateAssessment)
		api.GET("/assessments", s.ListAssessments)
		api.GET("/assessments/:id", s.GetAssessment)
		api.DELETE("/assessments/:id", s.DeleteAssessment)

		api.POST("/records", s.AddRecords)
		api.GET("/records", s.ListRecords)

		api.GET("/analysis", s.Analysis)
		api.GET("/status", s.Status)
		api.POST("/shutdown", s.Shutdown)
	}
}

// CreateAssessment runs the assessment model on the posted input and stores
// the result.
func (s *Service) CreateAssessment(c *gin.Context) {
	var in types.AssessmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := assess.Assess(in)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.PutAssessment(a); err != nil {
		logging.Get("daemon").Error("failed to store assessment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store assessment"})
		return
	}

	c.JSON(http.StatusCreated, a)
}

// ListAssessments returns stored assessments, newest first.
func (s *Service) ListAssessments(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	list, err := s.store.ListAssessments(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": list, "count": len(list)})
}

// GetAssessment returns one assessment by ID.
func (s *Service) GetAssessment(c *gin.Context) {
	a, err := s.store.GetAssessment(c.Param("id"))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, a)
}

// DeleteAssessment removes one assessment by ID.
func (s *Service) DeleteAssessment(c *gin.Context) {
	err := s.store.DeleteAssessment(c.Param("id"))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// AddRecords stores a batch of sleep records.
func (s *Service) AddRecords(c *gin.Context) {
	var records []types.SleepRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no records in request"})
		return
	}

	for i := range records {
		if records[i].Date.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record missing date"})
			return
		}
		records[i].Weekday = records[i].Date.Weekday()
	}

	if err := s.store.PutRecordBatch(records); err != nil {
		logging.Get("daemon").Error("failed to store records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store records"})
		return
	}

	if _, err := s.store.RefreshDataMeta(); err != nil {
		logging.Get("daemon").Warn("failed to refresh counts", "error", err)
	}

	c.JSON(http.StatusCreated, gin.H{"stored": len(records)})
}

// ListRecords returns stored records in chronological order. Optional from
// and to query parameters bound the date range.
func (s *Service) ListRecords(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}

	records, err := s.store.ListRecords(from, to, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// Analysis builds a full analysis report over the stored records.
func (s *Service) Analysis(c *gin.Context) {
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}

	records, err := s.store.ListRecords(from, to, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no records to analyze"})
		return
	}

	opts := s.analysis
	if window, ok := queryInt(c, "window", 0); !ok {
		return
	} else if window > 0 {
		opts.TrendWindow = window
	}
	if metric := c.Query("metric"); metric != "" {
		opts.AnomalyMetric = metric
	}

	report, err := analysis.BuildReport(records, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// DaemonStatus is the response body of the status endpoint.
type DaemonStatus struct {
	Running       bool       `json:"running"`
	Version       string     `json:"version"`
	PID           int        `json:"pid"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	MemoryBytes   int64      `json:"memory_bytes"`
	SchemaVersion int        `json:"schema_version"`
	Records       int64      `json:"records"`
	Assessments   int64      `json:"assessments"`
	Ingest        IngestInfo `json:"ingest"`
}

// Status returns daemon health information.
func (s *Service) Status(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := DaemonStatus{
		Running:       true,
		Version:       s.version,
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MemoryBytes:   int64(mem.Alloc),
	}

	if schema := s.store.GetSchema(); schema != nil {
		status.SchemaVersion = schema.Version
	}

	// Use cached counts when available, falling back to a scan
	if meta := s.store.GetDataMeta(); meta != nil {
		status.Records = meta.Records
		status.Assessments = meta.Assessments
	} else {
		status.Records, _ = s.store.CountRecords()
		status.Assessments, _ = s.store.CountAssessments()
	}

	s.mu.RLock()
	status.Ingest = s.ingestInfo
	s.mu.RUnlock()

	c.JSON(http.StatusOK, status)
}

// Shutdown gracefully shuts down the daemon.
func (s *Service) Shutdown(c *gin.Context) {
	s.mu.RLock()
	fn := s.shutdownFn
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{"shutting_down": true})

	if fn != nil {
		// Let the response flush before the server stops
		go func() {
			time.Sleep(100 * time.Millisecond)
			fn()
		}()
	}
}

// queryInt parses an optional integer query parameter. On a malformed value
// it writes a 400 response and reports failure.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return 0, false
	}
	return v, true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(queryDateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " date, want YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}
