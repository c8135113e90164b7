// Package dataset loads, generates, and persists sleep record tables.
// Sources are CSV files, a Postgres query, or the built-in synthetic
// generator used for demos and tests.
package dataset

import (
	"math/rand"
	"time"

	"github.com/somnolab/somno/pkg/somno/types"
)

// Generator produces synthetic sleep records with realistic distributions.
// A fixed seed makes generated datasets reproducible.
type Generator struct {
	rng   *rand.Rand
	start time.Time
}

// NewGenerator creates a generator seeded with the given value.
// Records start at the given date, one per day.
func NewGenerator(seed int64, start time.Time) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		start: start,
	}
}

// normal draws from a normal distribution with the given mean and stddev.
func (g *Generator) normal(mean, stddev float64) float64 {
	return g.rng.NormFloat64()*stddev + mean
}

// Generate produces n consecutive daily records. Metric distributions match
// typical consumer tracker data: duration ~N(7.5, 1.5) hours, quality
// ~N(75, 15), bedtime ~N(23, 1.5), activity ~N(45, 20) minutes, stress
// ~N(5, 2), heart rate ~N(65, 5) bpm, deep ~N(20, 5) and REM ~N(25, 5)
// percent. Values are clamped to realistic ranges, and wake time and light
// sleep share are derived.
func (g *Generator) Generate(n int) []types.SleepRecord {
	records := make([]types.SleepRecord, 0, n)

	for i := 0; i < n; i++ {
		duration := types.Clamp(g.normal(7.5, 1.5), 4, 12)
		bedtime := g.normal(23, 1.5)
		deep := g.normal(20, 5)
		rem := g.normal(25, 5)

		rec := types.SleepRecord{
			Date:      g.start.AddDate(0, 0, i),
			Duration:  duration,
			Quality:   types.Clamp(g.normal(75, 15), 0, 100),
			Bedtime:   bedtime,
			WakeTime:  types.DeriveWakeTime(bedtime, duration),
			Activity:  types.Clamp(g.normal(45, 20), 0, 120),
			Stress:    types.Clamp(g.normal(5, 2), 0, 10),
			HeartRate: types.Clamp(g.normal(65, 5), 45, 85),
			DeepPct:   deep,
			RemPct:    rem,
			LightPct:  types.DeriveLightPct(deep, rem),
		}
		rec.Weekday = rec.Date.Weekday()

		records = append(records, rec)
	}

	return records
}
