// Package analysis computes descriptive statistics, weekly patterns,
// correlations, anomalies, and trends over sleep record datasets, and
// assembles them into a single report with headline insights.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/somnolab/somno/pkg/somno/types"
)

// Metric names accepted by the per-metric operations.
const (
	MetricDuration  = "sleep_duration"
	MetricQuality   = "quality_score"
	MetricBedtime   = "bedtime"
	MetricWakeTime  = "wake_time"
	MetricActivity  = "activity_level"
	MetricStress    = "stress_level"
	MetricHeartRate = "heart_rate"
	MetricDeepPct   = "deep_sleep_pct"
	MetricRemPct    = "rem_sleep_pct"
	MetricLightPct  = "light_sleep_pct"
)

// ErrUnknownMetric is returned when a metric name is not recognized.
var ErrUnknownMetric = errors.New("unknown metric")

// metricGetters maps metric names to record accessors.
var metricGetters = map[string]func(types.SleepRecord) float64{
	MetricDuration:  func(r types.SleepRecord) float64 { return r.Duration },
	MetricQuality:   func(r types.SleepRecord) float64 { return r.Quality },
	MetricBedtime:   func(r types.SleepRecord) float64 { return r.Bedtime },
	MetricWakeTime:  func(r types.SleepRecord) float64 { return r.WakeTime },
	MetricActivity:  func(r types.SleepRecord) float64 { return r.Activity },
	MetricStress:    func(r types.SleepRecord) float64 { return r.Stress },
	MetricHeartRate: func(r types.SleepRecord) float64 { return r.HeartRate },
	MetricDeepPct:   func(r types.SleepRecord) float64 { return r.DeepPct },
	MetricRemPct:    func(r types.SleepRecord) float64 { return r.RemPct },
	MetricLightPct:  func(r types.SleepRecord) float64 { return r.LightPct },
}

// correlationMetrics is the fixed metric set of the correlation matrix.
var correlationMetrics = []string{
	MetricDuration, MetricQuality, MetricActivity, MetricStress,
	MetricHeartRate, MetricDeepPct, MetricRemPct, MetricLightPct,
}

// statsMetrics is the metric set summarized by BasicStats.
var statsMetrics = []string{
	MetricDuration, MetricQuality, MetricDeepPct, MetricRemPct, MetricLightPct,
}

// Stats holds the five-number summary of one metric.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// metricValues extracts one metric across all records.
func metricValues(records []types.SleepRecord, metric string) ([]float64, error) {
	get, ok := metricGetters[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	values := make([]float64, len(records))
	for i, rec := range records {
		values[i] = get(rec)
	}
	return values, nil
}

// BasicStats summarizes the key sleep metrics: duration, quality, and the
// three stage percentages.
func BasicStats(records []types.SleepRecord) map[string]Stats {
	out := make(map[string]Stats, len(statsMetrics))
	for _, metric := range statsMetrics {
		values, _ := metricValues(records, metric)
		out[metric] = summarize(values)
	}
	return out
}

func summarize(values []float64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sqSum float64
	for _, v := range values {
		sqSum += (v - mean) * (v - mean)
	}

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Stats{
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(sqSum / float64(n)),
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

// Correlations computes the Pearson correlation matrix over the eight
// numeric sleep metrics. Keys are metric names on both axes.
func Correlations(records []types.SleepRecord) map[string]map[string]float64 {
	columns := make(map[string][]float64, len(correlationMetrics))
	for _, metric := range correlationMetrics {
		columns[metric], _ = metricValues(records, metric)
	}

	matrix := make(map[string]map[string]float64, len(correlationMetrics))
	for _, a := range correlationMetrics {
		matrix[a] = make(map[string]float64, len(correlationMetrics))
		for _, b := range correlationMetrics {
			matrix[a][b] = pearson(columns[a], columns[b])
		}
	}
	return matrix
}

// pearson computes the Pearson correlation coefficient of two equal-length
// series. Constant series yield NaN-free zero.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// Anomaly pairs an anomalous record with its z-score on the inspected metric.
type Anomaly struct {
	Record types.SleepRecord `json:"record"`
	ZScore float64           `json:"z_score"`
}

// DetectAnomalies flags records whose metric value deviates from the mean by
// more than threshold standard deviations.
func DetectAnomalies(records []types.SleepRecord, metric string, threshold float64) ([]Anomaly, error) {
	values, err := metricValues(records, metric)
	if err != nil {
		return nil, err
	}

	s := summarize(values)
	if s.StdDev == 0 {
		return nil, nil
	}

	var anomalies []Anomaly
	for i, v := range values {
		z := (v - s.Mean) / s.StdDev
		if math.Abs(z) > threshold {
			anomalies = append(anomalies, Anomaly{Record: records[i], ZScore: z})
		}
	}
	return anomalies, nil
}

// MovingAverage computes the trailing moving average of a metric. The first
// window-1 positions are NaN, matching the convention that a trend needs a
// full window before it is meaningful.
func MovingAverage(records []types.SleepRecord, metric string, window int) ([]float64, error) {
	if window <= 0 {
		window = 1
	}
	values, err := metricValues(records, metric)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
