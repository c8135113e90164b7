package daemon_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/somnolab/somno/pkg/daemon"
	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/types"
)

func newTestService(t *testing.T) (*daemon.Service, *gin.Engine, *store.Store) {
	t.Helper()

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	svc := daemon.NewService(s, analysis.Options{}, "test")

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	svc.Routes(engine)

	return svc, engine, s
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func validInput() types.AssessmentInput {
	return types.AssessmentInput{
		Age:       35,
		Duration:  6.5,
		Quality:   70,
		Stress:    6,
		DeepPct:   18,
		RemPct:    22,
		HeartRate: 68,
	}
}

func TestCreateAssessment(t *testing.T) {
	_, engine, s := newTestService(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/assessments", validInput())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var a assess.Assessment
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if a.ID == "" {
		t.Error("Expected assessment ID in response")
	}
	if a.RiskScore != 45 { // 15 duration + 15 quality + 15 stress
		t.Errorf("Expected risk score 45, got %d", a.RiskScore)
	}

	// Stored
	stored, err := s.GetAssessment(a.ID)
	if err != nil {
		t.Fatalf("Assessment not stored: %v", err)
	}
	if stored.RiskBand != a.RiskBand {
		t.Errorf("Stored band %s != response band %s", stored.RiskBand, a.RiskBand)
	}
}

func TestCreateAssessmentRejectsBadInput(t *testing.T) {
	_, engine, _ := newTestService(t)

	// Out-of-range input
	in := validInput()
	in.Age = 15
	w := doJSON(t, engine, http.MethodPost, "/api/v1/assessments", in)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for out-of-range age, got %d", w.Code)
	}

	// Malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestListAssessmentsNewestFirst(t *testing.T) {
	_, engine, s := newTestService(t)

	for i, created := range []time.Time{
		time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC),
	} {
		a := &assess.Assessment{
			ID:        fmt.Sprintf("assessment-%d", i),
			CreatedAt: created,
			RiskScore: 10 * i,
			RiskBand:  assess.BandLow,
		}
		if err := s.PutAssessment(a); err != nil {
			t.Fatalf("PutAssessment failed: %v", err)
		}
	}

	w := doJSON(t, engine, http.MethodGet, "/api/v1/assessments", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Assessments []assess.Assessment `json:"assessments"`
		Count       int                 `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("Expected 2 assessments, got %d", resp.Count)
	}
	if resp.Assessments[0].ID != "assessment-1" {
		t.Errorf("Expected newest first, got %s", resp.Assessments[0].ID)
	}

	// Limit
	w = doJSON(t, engine, http.MethodGet, "/api/v1/assessments?limit=1", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("Expected 1 assessment with limit, got %d", resp.Count)
	}

	// Bad limit
	w = doJSON(t, engine, http.MethodGet, "/api/v1/assessments?limit=nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

func TestGetAssessmentNotFound(t *testing.T) {
	_, engine, _ := newTestService(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/assessments/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestDeleteAssessment(t *testing.T) {
	_, engine, s := newTestService(t)

	a := &assess.Assessment{ID: "doomed", CreatedAt: time.Now().UTC(), RiskBand: assess.BandLow}
	if err := s.PutAssessment(a); err != nil {
		t.Fatalf("PutAssessment failed: %v", err)
	}

	w := doJSON(t, engine, http.MethodDelete, "/api/v1/assessments/doomed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodDelete, "/api/v1/assessments/doomed", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %d", w.Code)
	}
}

func TestAddAndListRecords(t *testing.T) {
	_, engine, _ := newTestService(t)

	records := []types.SleepRecord{
		{Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Duration: 7.5, Quality: 80},
		{Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Duration: 6.0, Quality: 65},
		{Date: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), Duration: 8.0, Quality: 88},
	}

	w := doJSON(t, engine, http.MethodPost, "/api/v1/records", records)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/records?from=2025-04-02", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Records []types.SleepRecord `json:"records"`
		Count   int                 `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("Expected 2 records from 2025-04-02, got %d", resp.Count)
	}

	// Empty batch rejected
	w = doJSON(t, engine, http.MethodPost, "/api/v1/records", []types.SleepRecord{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty batch, got %d", w.Code)
	}

	// Bad date parameter
	w = doJSON(t, engine, http.MethodGet, "/api/v1/records?from=yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", w.Code)
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	_, engine, s := newTestService(t)

	// No data yet
	w := doJSON(t, engine, http.MethodGet, "/api/v1/analysis", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with no records, got %d", w.Code)
	}

	var records []types.SleepRecord
	for i := 0; i < 14; i++ {
		records = append(records, types.SleepRecord{
			Date:     time.Date(2025, 4, 1+i, 0, 0, 0, 0, time.UTC),
			Duration: 7 + float64(i%3)*0.5,
			Quality:  70 + float64(i),
			DeepPct:  20,
			RemPct:   23,
		})
	}
	if err := s.PutRecordBatch(records); err != nil {
		t.Fatalf("PutRecordBatch failed: %v", err)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/analysis?window=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report analysis.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Records != 14 {
		t.Errorf("Expected 14 records in report, got %d", report.Records)
	}
	if len(report.Trends) == 0 || report.Trends[0].Window != 3 {
		t.Errorf("Expected trend window 3, got %+v", report.Trends)
	}

	// Unknown metric
	w = doJSON(t, engine, http.MethodGet, "/api/v1/analysis?metric=shoe_size", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown metric, got %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	svc, engine, s := newTestService(t)

	if err := s.PutRecord(types.SleepRecord{
		Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Duration: 7,
	}); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}
	svc.SetIngestInfo(daemon.IngestInfo{InboxDir: "/tmp/inbox", WatchActive: true})

	w := doJSON(t, engine, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var status daemon.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("Expected running status")
	}
	if status.Version != "test" {
		t.Errorf("Expected version test, got %s", status.Version)
	}
	if status.Records != 1 {
		t.Errorf("Expected 1 record, got %d", status.Records)
	}
	if !status.Ingest.WatchActive {
		t.Error("Expected ingest watch active")
	}
}

func TestShutdownEndpoint(t *testing.T) {
	svc, engine, _ := newTestService(t)

	done := make(chan struct{})
	svc.OnShutdown(func() { close(done) })

	w := doJSON(t, engine, http.MethodPost, "/api/v1/shutdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown callback not invoked")
	}
}
