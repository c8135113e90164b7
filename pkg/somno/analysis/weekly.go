package analysis

import (
	"math"
	"time"

	"github.com/somnolab/somno/pkg/somno/types"
)

// WeekdayAverages holds mean metrics for one day of the week.
type WeekdayAverages struct {
	Weekday  time.Weekday `json:"day_of_week"`
	Nights   int          `json:"nights"`
	Duration float64      `json:"sleep_duration"`
	Quality  float64      `json:"quality_score"`
	DeepPct  float64      `json:"deep_sleep_pct"`
	Bedtime  float64      `json:"bedtime"`
	WakeTime float64      `json:"wake_time"`
}

// WeeklyPatterns groups records by day of week and averages the headline
// metrics, rounded to two decimals. Days with no records are omitted. The
// result is ordered Sunday through Saturday.
func WeeklyPatterns(records []types.SleepRecord) []WeekdayAverages {
	type accumulator struct {
		n                                          int
		duration, quality, deep, bedtime, wakeTime float64
	}

	var buckets [7]accumulator
	for _, rec := range records {
		b := &buckets[rec.Date.Weekday()]
		b.n++
		b.duration += rec.Duration
		b.quality += rec.Quality
		b.deep += rec.DeepPct
		b.bedtime += rec.Bedtime
		b.wakeTime += rec.WakeTime
	}

	var out []WeekdayAverages
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		b := buckets[wd]
		if b.n == 0 {
			continue
		}
		n := float64(b.n)
		out = append(out, WeekdayAverages{
			Weekday:  wd,
			Nights:   b.n,
			Duration: round2(b.duration / n),
			Quality:  round2(b.quality / n),
			DeepPct:  round2(b.deep / n),
			Bedtime:  round2(b.bedtime / n),
			WakeTime: round2(b.wakeTime / n),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
