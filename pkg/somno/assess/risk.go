// Package assess implements the sleep-health assessment model: an additive
// risk score over sleep metrics and age, condition predictions, estimated
// life-expectancy impact, and per-metric recommendations.
package assess

import "github.com/somnolab/somno/pkg/somno/types"

// RiskBand labels a range of risk scores.
type RiskBand string

// Risk bands from best to worst.
const (
	BandLow      RiskBand = "low"
	BandModerate RiskBand = "moderate"
	BandElevated RiskBand = "elevated"
	BandHigh     RiskBand = "high"
)

// RiskScore computes the additive health risk score on a 0-100 scale.
// Each risk factor contributes a fixed weight; the sum is capped at 100.
func RiskScore(in types.AssessmentInput) int {
	score := 0

	// Sleep duration
	switch {
	case in.Duration < 6:
		score += 30
	case in.Duration < 7:
		score += 15
	case in.Duration > 9:
		score += 10
	}

	// Sleep quality
	switch {
	case in.Quality < 60:
		score += 25
	case in.Quality < 75:
		score += 15
	}

	// Sleep stages
	if in.DeepPct < 15 {
		score += 20
	}
	if in.RemPct < 20 {
		score += 15
	}

	// Age
	switch {
	case in.Age >= 60:
		score += 20
	case in.Age >= 45:
		score += 10
	}

	// Stress
	switch {
	case in.Stress >= 8:
		score += 25
	case in.Stress >= 6:
		score += 15
	}

	// Heart rate
	switch {
	case in.HeartRate > 75:
		score += 15
	case in.HeartRate < 55:
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Band maps a risk score onto its band.
func Band(score int) RiskBand {
	switch {
	case score < 25:
		return BandLow
	case score < 50:
		return BandModerate
	case score < 75:
		return BandElevated
	default:
		return BandHigh
	}
}
