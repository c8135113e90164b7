package etl

import (
	"math"

	"github.com/somnolab/somno/pkg/somno/types"
)

// ValueRange holds the observed min and max of one metric.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// QualityReport summarizes data quality over a transformed dataset.
type QualityReport struct {
	// RecordCount is the number of records checked.
	RecordCount int `json:"record_count"`

	// MissingValues counts NaN metric values per field.
	MissingValues map[string]int `json:"missing_values"`

	// ValueRanges holds observed min/max per metric.
	ValueRanges map[string]ValueRange `json:"value_ranges"`
}

// qualityMetrics are the fields inspected by QualityChecks.
var qualityMetrics = []struct {
	name string
	get  func(types.SleepRecord) float64
}{
	{"sleep_duration", func(r types.SleepRecord) float64 { return r.Duration }},
	{"quality_score", func(r types.SleepRecord) float64 { return r.Quality }},
	{"bedtime", func(r types.SleepRecord) float64 { return r.Bedtime }},
	{"wake_time", func(r types.SleepRecord) float64 { return r.WakeTime }},
	{"activity_level", func(r types.SleepRecord) float64 { return r.Activity }},
	{"stress_level", func(r types.SleepRecord) float64 { return r.Stress }},
	{"heart_rate", func(r types.SleepRecord) float64 { return r.HeartRate }},
	{"deep_sleep_pct", func(r types.SleepRecord) float64 { return r.DeepPct }},
	{"rem_sleep_pct", func(r types.SleepRecord) float64 { return r.RemPct }},
	{"light_sleep_pct", func(r types.SleepRecord) float64 { return r.LightPct }},
}

// QualityChecks computes a quality report over the current pipeline state
// and stores it for retrieval via Quality.
func (t *Transformer) QualityChecks() *Transformer {
	report := &QualityReport{
		RecordCount:   len(t.records),
		MissingValues: make(map[string]int, len(qualityMetrics)),
		ValueRanges:   make(map[string]ValueRange, len(qualityMetrics)),
	}

	for _, metric := range qualityMetrics {
		missing := 0
		lo := math.Inf(1)
		hi := math.Inf(-1)

		for _, rec := range t.records {
			v := metric.get(rec)
			if math.IsNaN(v) {
				missing++
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}

		report.MissingValues[metric.name] = missing
		if len(t.records) > 0 && missing < len(t.records) {
			report.ValueRanges[metric.name] = ValueRange{Min: lo, Max: hi}
		}
	}

	t.quality = report
	return t
}

// Quality returns the report produced by the last QualityChecks call, or an
// empty report when the stage has not run.
func (t *Transformer) Quality() *QualityReport {
	if t.quality == nil {
		return &QualityReport{
			MissingValues: map[string]int{},
			ValueRanges:   map[string]ValueRange{},
		}
	}
	return t.quality
}
