package store_test

import (
	"testing"
	"time"

	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/types"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestStoreRecordOperations(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	rec := types.SleepRecord{
		Date:     day(1),
		Duration: 7.5,
		Quality:  82,
	}

	if err := s.PutRecord(rec); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	got, err := s.GetRecord(day(1))
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Duration != 7.5 {
		t.Errorf("Expected duration 7.5, got %v", got.Duration)
	}

	// Storing the identical record again is a no-op
	if err := s.PutRecord(rec); err != nil {
		t.Fatalf("PutRecord repeat failed: %v", err)
	}
	count, err := s.CountRecords()
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record after identical re-put, got %d", count)
	}
}

func TestStoreKeepsDistinctSameDateRecords(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	// Two wearables reporting different summaries for the same night
	records := []types.SleepRecord{
		{Date: day(5), Duration: 7.5, Quality: 82, HeartRate: 60},
		{Date: day(5), Duration: 7.2, Quality: 78, HeartRate: 64},
	}
	if err := s.PutRecordBatch(records); err != nil {
		t.Fatalf("PutRecordBatch failed: %v", err)
	}

	count, err := s.CountRecords()
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected both same-date records stored, got %d", count)
	}

	listed, err := s.ListRecords(day(5), day(5), 0)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected 2 records in range, got %d", len(listed))
	}

	if err := s.DeleteRecord(day(5)); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	count, err = s.CountRecords()
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 records after delete, got %d", count)
	}
}

func TestStoreListRecordsOrderAndRange(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	// Insert out of order
	records := []types.SleepRecord{
		{Date: day(3), Duration: 6},
		{Date: day(1), Duration: 7},
		{Date: day(5), Duration: 8},
	}
	if err := s.PutRecordBatch(records); err != nil {
		t.Fatalf("PutRecordBatch failed: %v", err)
	}

	all, err := s.ListRecords(time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if !all[0].Date.Equal(day(1)) || !all[2].Date.Equal(day(5)) {
		t.Errorf("Records not in chronological order: %v", all)
	}

	ranged, err := s.ListRecords(day(2), day(4), 0)
	if err != nil {
		t.Fatalf("ListRecords ranged failed: %v", err)
	}
	if len(ranged) != 1 || !ranged[0].Date.Equal(day(3)) {
		t.Errorf("Expected only the day-3 record, got %v", ranged)
	}

	limited, err := s.ListRecords(time.Time{}, time.Time{}, 2)
	if err != nil {
		t.Fatalf("ListRecords limited failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 records with limit, got %d", len(limited))
	}
}

func TestStoreAssessmentOperations(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	older := &assess.Assessment{
		ID:        "assessment-older",
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		RiskScore: 40,
		RiskBand:  assess.BandModerate,
	}
	newer := &assess.Assessment{
		ID:        "assessment-newer",
		CreatedAt: time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC),
		RiskScore: 15,
		RiskBand:  assess.BandLow,
	}

	if err := s.PutAssessment(older); err != nil {
		t.Fatalf("PutAssessment failed: %v", err)
	}
	if err := s.PutAssessment(newer); err != nil {
		t.Fatalf("PutAssessment failed: %v", err)
	}

	got, err := s.GetAssessment("assessment-older")
	if err != nil {
		t.Fatalf("GetAssessment failed: %v", err)
	}
	if got.RiskScore != 40 {
		t.Errorf("Expected risk score 40, got %d", got.RiskScore)
	}

	list, err := s.ListAssessments(0)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 assessments, got %d", len(list))
	}
	if list[0].ID != "assessment-newer" {
		t.Errorf("Expected newest first, got %s", list[0].ID)
	}

	limited, err := s.ListAssessments(1)
	if err != nil {
		t.Fatalf("ListAssessments limited failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "assessment-newer" {
		t.Errorf("Expected only the newest assessment, got %v", limited)
	}
}

func TestStoreDeleteAssessment(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	a := &assess.Assessment{
		ID:        "to-delete",
		CreatedAt: time.Now().UTC(),
		RiskScore: 60,
		RiskBand:  assess.BandElevated,
	}
	if err := s.PutAssessment(a); err != nil {
		t.Fatalf("PutAssessment failed: %v", err)
	}

	if err := s.DeleteAssessment("to-delete"); err != nil {
		t.Fatalf("DeleteAssessment failed: %v", err)
	}

	if _, err := s.GetAssessment("to-delete"); err == nil {
		t.Error("Expected error getting deleted assessment")
	}

	list, err := s.ListAssessments(0)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list after delete, got %d", len(list))
	}
}

func TestStoreDataMeta(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if meta := s.GetDataMeta(); meta != nil {
		t.Errorf("Expected nil meta on fresh store, got %+v", meta)
	}

	if err := s.PutRecord(types.SleepRecord{Date: day(1), Duration: 7}); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	meta, err := s.RefreshDataMeta()
	if err != nil {
		t.Fatalf("RefreshDataMeta failed: %v", err)
	}
	if meta.Records != 1 || meta.Assessments != 0 {
		t.Errorf("Unexpected counts: %+v", meta)
	}

	cached := s.GetDataMeta()
	if cached == nil || cached.Records != 1 {
		t.Errorf("Expected cached meta with 1 record, got %+v", cached)
	}
}
