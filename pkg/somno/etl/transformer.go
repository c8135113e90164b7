// Package etl implements the sleep record transform pipeline: cleaning,
// feature engineering, and normalization, with a quality report over the
// result. Steps chain on a Transformer so callers compose only the stages
// they need.
package etl

import (
	"math"
	"sort"

	"github.com/somnolab/somno/pkg/somno/logging"
	"github.com/somnolab/somno/pkg/somno/types"
)

// Transformer runs pipeline stages over a copied record slice.
// The input slice is never mutated.
type Transformer struct {
	records []types.SleepRecord
	quality *QualityReport
}

// New creates a Transformer over a copy of records.
func New(records []types.SleepRecord) *Transformer {
	copied := make([]types.SleepRecord, len(records))
	copy(copied, records)
	return &Transformer{records: copied}
}

// Records returns the current state of the pipeline.
func (t *Transformer) Records() []types.SleepRecord {
	return t.records
}

// Clean drops rows containing negative metric values, removes exact
// duplicates, and sorts by date ascending.
func (t *Transformer) Clean() *Transformer {
	log := logging.Get("etl")
	before := len(t.records)

	kept := t.records[:0]
	seen := make(map[types.SleepRecord]struct{}, len(t.records))
	for _, rec := range t.records {
		if hasNegativeMetric(rec) {
			continue
		}
		if _, dup := seen[rec]; dup {
			continue
		}
		seen[rec] = struct{}{}
		kept = append(kept, rec)
	}
	t.records = kept

	sort.SliceStable(t.records, func(i, j int) bool {
		return t.records[i].Date.Before(t.records[j].Date)
	})

	if dropped := before - len(t.records); dropped > 0 {
		log.Info("cleaned records", "dropped", dropped, "kept", len(t.records))
	}
	return t
}

// EngineerFeatures populates the derived fields: sleep efficiency, bedtime
// shift versus the previous night, sleep debt against the 8 hour baseline,
// and day of week. Records are assumed date-sorted (run Clean first).
func (t *Transformer) EngineerFeatures() *Transformer {
	for i := range t.records {
		rec := &t.records[i]

		rec.Efficiency = (rec.DeepPct + 0.5*rec.RemPct) / 100
		rec.SleepDebt = 8 - rec.Duration
		rec.Weekday = rec.Date.Weekday()

		if i == 0 {
			rec.BedtimeShift = 0
		} else {
			rec.BedtimeShift = math.Abs(rec.Bedtime - t.records[i-1].Bedtime)
		}
	}
	return t
}

// normalizedField selects a metric for z-score standardization.
type normalizedField struct {
	name string
	get  func(*types.SleepRecord) *float64
}

// normalizedFields are the metrics standardized by Normalize.
var normalizedFields = []normalizedField{
	{"sleep_duration", func(r *types.SleepRecord) *float64 { return &r.Duration }},
	{"quality_score", func(r *types.SleepRecord) *float64 { return &r.Quality }},
	{"activity_level", func(r *types.SleepRecord) *float64 { return &r.Activity }},
	{"stress_level", func(r *types.SleepRecord) *float64 { return &r.Stress }},
	{"heart_rate", func(r *types.SleepRecord) *float64 { return &r.HeartRate }},
}

// Normalize applies z-score standardization to duration, quality, activity,
// stress, and heart rate. A constant column yields zeros rather than
// dividing by a zero stddev.
func (t *Transformer) Normalize() *Transformer {
	n := len(t.records)
	if n == 0 {
		return t
	}

	for _, field := range normalizedFields {
		var sum float64
		for i := range t.records {
			sum += *field.get(&t.records[i])
		}
		mean := sum / float64(n)

		var sqSum float64
		for i := range t.records {
			d := *field.get(&t.records[i]) - mean
			sqSum += d * d
		}
		stddev := math.Sqrt(sqSum / float64(n))

		for i := range t.records {
			v := field.get(&t.records[i])
			if stddev == 0 {
				*v = 0
			} else {
				*v = (*v - mean) / stddev
			}
		}
	}
	return t
}

func hasNegativeMetric(r types.SleepRecord) bool {
	metrics := []float64{
		r.Duration, r.Quality, r.Bedtime, r.WakeTime,
		r.Activity, r.Stress, r.HeartRate,
		r.DeepPct, r.RemPct, r.LightPct,
	}
	for _, m := range metrics {
		if m < 0 {
			return true
		}
	}
	return false
}
