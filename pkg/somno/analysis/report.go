package analysis

import (
	"math"
	"time"

	"github.com/somnolab/somno/pkg/somno/types"
)

// Trend labels for the report insights.
const (
	TrendImproving = "improving"
	TrendVarying   = "varying"
)

// insightTail is how many of the most recent quality scores decide the
// trend direction.
const insightTail = 5

// Insights carries the headline findings of a report.
type Insights struct {
	AvgSleepDuration float64      `json:"avg_sleep_duration"`
	BestQualityDay   time.Weekday `json:"best_quality_day"`
	WorstQualityDay  time.Weekday `json:"worst_quality_day"`
	QualityTrend     string       `json:"sleep_quality_trend"`
}

// TrendSeries holds the trailing moving averages of one metric. Positions
// before a full window are omitted from JSON as NaN encodes poorly.
type TrendSeries struct {
	Metric string    `json:"metric"`
	Window int       `json:"window"`
	Values []float64 `json:"values"`
}

// Report is the full analysis output over a dataset.
type Report struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Records     int                           `json:"records"`
	BasicStats  map[string]Stats              `json:"basic_stats"`
	Weekly      []WeekdayAverages             `json:"weekly_patterns"`
	Correlation map[string]map[string]float64 `json:"correlations"`
	Trends      []TrendSeries                 `json:"trends"`
	Anomalies   []Anomaly                     `json:"anomalies,omitempty"`
	Insights    Insights                      `json:"insights"`
}

// Options tunes report generation.
type Options struct {
	// TrendWindow is the moving-average window in nights. Zero uses 7.
	TrendWindow int

	// AnomalyThreshold is the z-score cutoff. Zero uses 2.0.
	AnomalyThreshold float64

	// AnomalyMetric is the metric inspected for anomalies.
	// Empty uses sleep duration.
	AnomalyMetric string
}

func (o *Options) fill() {
	if o.TrendWindow == 0 {
		o.TrendWindow = 7
	}
	if o.AnomalyThreshold == 0 {
		o.AnomalyThreshold = 2.0
	}
	if o.AnomalyMetric == "" {
		o.AnomalyMetric = MetricDuration
	}
}

// trendMetrics are the metrics included in the report's trend section.
var trendMetrics = []string{MetricDuration, MetricQuality, MetricDeepPct}

// BuildReport assembles the complete analysis report for a dataset.
func BuildReport(records []types.SleepRecord, opts Options) (*Report, error) {
	opts.fill()

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Records:     len(records),
		BasicStats:  BasicStats(records),
		Weekly:      WeeklyPatterns(records),
		Correlation: Correlations(records),
	}

	for _, metric := range trendMetrics {
		ma, err := MovingAverage(records, metric, opts.TrendWindow)
		if err != nil {
			return nil, err
		}
		report.Trends = append(report.Trends, TrendSeries{
			Metric: metric,
			Window: opts.TrendWindow,
			Values: stripLeadingNaN(ma),
		})
	}

	anomalies, err := DetectAnomalies(records, opts.AnomalyMetric, opts.AnomalyThreshold)
	if err != nil {
		return nil, err
	}
	report.Anomalies = anomalies

	report.Insights = buildInsights(records, report.Weekly)
	return report, nil
}

func buildInsights(records []types.SleepRecord, weekly []WeekdayAverages) Insights {
	in := Insights{QualityTrend: TrendVarying}

	if len(records) > 0 {
		var sum float64
		for _, rec := range records {
			sum += rec.Duration
		}
		in.AvgSleepDuration = sum / float64(len(records))
	}

	if len(weekly) > 0 {
		best, worst := weekly[0], weekly[0]
		for _, w := range weekly[1:] {
			if w.Quality > best.Quality {
				best = w
			}
			if w.Quality < worst.Quality {
				worst = w
			}
		}
		in.BestQualityDay = best.Weekday
		in.WorstQualityDay = worst.Weekday
	}

	if qualityImproving(records) {
		in.QualityTrend = TrendImproving
	}
	return in
}

// qualityImproving reports whether the last few quality scores are
// monotonically non-decreasing. A single record is trivially monotonic.
func qualityImproving(records []types.SleepRecord) bool {
	if len(records) == 0 {
		return false
	}

	start := len(records) - insightTail
	if start < 0 {
		start = 0
	}
	tail := records[start:]
	for i := 1; i < len(tail); i++ {
		if tail[i].Quality < tail[i-1].Quality {
			return false
		}
	}
	return true
}

// stripLeadingNaN removes the warm-up NaN positions of a moving average.
func stripLeadingNaN(values []float64) []float64 {
	for i, v := range values {
		if !math.IsNaN(v) {
			return values[i:]
		}
	}
	return nil
}
