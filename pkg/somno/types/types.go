// Package types provides core data types for the somno sleep-health analyzer.
// It includes the sleep record model shared by the ETL pipeline, the analysis
// engine, and the assessment service, along with input validation for the
// assessment model.
package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Metric range constants shared by validation and the synthetic generator.
const (
	// MinAge is the youngest age accepted for assessment.
	MinAge = 18

	// MaxAge is the oldest age accepted for assessment.
	MaxAge = 100

	// MinSleepHours is the shortest sleep duration accepted, in hours.
	MinSleepHours = 4.0

	// MaxSleepHours is the longest sleep duration accepted, in hours.
	MaxSleepHours = 12.0

	// MaxQualityScore is the upper bound of the quality score scale.
	MaxQualityScore = 100.0

	// MaxStressLevel is the upper bound of the stress scale.
	MaxStressLevel = 10.0

	// MaxStagePct is the upper bound accepted for a single sleep stage share.
	MaxStagePct = 40.0

	// MinHeartRate is the lowest resting heart rate accepted, in bpm.
	MinHeartRate = 40.0

	// MaxHeartRate is the highest resting heart rate accepted, in bpm.
	MaxHeartRate = 100.0
)

// SleepRecord is a single night of sleep metrics. Raw fields come from the
// data source; the derived fields are populated by the ETL pipeline.
type SleepRecord struct {
	// Date is the calendar date the night belongs to.
	Date time.Time `json:"date"`

	// Duration is total sleep time in hours.
	Duration float64 `json:"sleep_duration"`

	// Quality is the sleep quality score on a 0-100 scale.
	Quality float64 `json:"quality_score"`

	// Bedtime is the time the subject went to bed, as a fractional hour
	// of day in [0, 24).
	Bedtime float64 `json:"bedtime"`

	// WakeTime is the wake-up time as a fractional hour of day, derived
	// from bedtime and duration modulo 24.
	WakeTime float64 `json:"wake_time"`

	// Activity is daytime activity in minutes.
	Activity float64 `json:"activity_level"`

	// Stress is the self-reported stress level on a 0-10 scale.
	Stress float64 `json:"stress_level"`

	// HeartRate is the average sleeping heart rate in bpm.
	HeartRate float64 `json:"heart_rate"`

	// DeepPct is the share of the night spent in deep sleep, in percent.
	DeepPct float64 `json:"deep_sleep_pct"`

	// RemPct is the share of the night spent in REM sleep, in percent.
	RemPct float64 `json:"rem_sleep_pct"`

	// LightPct is the share of the night spent in light sleep, derived as
	// the remainder after deep and REM.
	LightPct float64 `json:"light_sleep_pct"`

	// Efficiency is the derived sleep efficiency in [0, 1], weighting deep
	// sleep fully and REM sleep at half.
	Efficiency float64 `json:"sleep_efficiency,omitempty"`

	// BedtimeShift is the absolute change in bedtime versus the previous
	// night, in hours. Zero for the first record of a series.
	BedtimeShift float64 `json:"bedtime_shift,omitempty"`

	// SleepDebt is hours short of (or beyond, when negative) the eight
	// hour baseline.
	SleepDebt float64 `json:"sleep_debt,omitempty"`

	// Weekday is the day of week of Date.
	Weekday time.Weekday `json:"day_of_week"`
}

// DeriveWakeTime computes the wake-up hour from bedtime and duration.
func DeriveWakeTime(bedtime, duration float64) float64 {
	return math.Mod(bedtime+duration, 24)
}

// DeriveLightPct computes the light sleep share from deep and REM shares.
func DeriveLightPct(deepPct, remPct float64) float64 {
	return 100 - deepPct - remPct
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AssessmentInput carries the metrics for a single health assessment.
// Field tags allow direct binding from the HTTP API.
type AssessmentInput struct {
	Age       int     `json:"age"`
	Duration  float64 `json:"sleep_duration"`
	Quality   float64 `json:"quality_score"`
	Stress    float64 `json:"stress_level"`
	DeepPct   float64 `json:"deep_sleep_pct"`
	RemPct    float64 `json:"rem_sleep_pct"`
	HeartRate float64 `json:"heart_rate"`
}

// Validation errors for assessment input. Each names the offending field so
// API clients can map failures onto input widgets.
var (
	ErrAgeOutOfRange       = errors.New("age out of range")
	ErrDurationOutOfRange  = errors.New("sleep duration out of range")
	ErrQualityOutOfRange   = errors.New("quality score out of range")
	ErrStressOutOfRange    = errors.New("stress level out of range")
	ErrStagePctOutOfRange  = errors.New("sleep stage percentage out of range")
	ErrHeartRateOutOfRange = errors.New("heart rate out of range")
)

// Validate checks every field against its accepted range. It returns the
// first violation found, wrapped with the offending value.
func (in AssessmentInput) Validate() error {
	if in.Age < MinAge || in.Age > MaxAge {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrAgeOutOfRange, in.Age, MinAge, MaxAge)
	}
	if in.Duration < MinSleepHours || in.Duration > MaxSleepHours {
		return fmt.Errorf("%w: %.1f (want %.0f-%.0f hours)", ErrDurationOutOfRange, in.Duration, MinSleepHours, MaxSleepHours)
	}
	if in.Quality < 0 || in.Quality > MaxQualityScore {
		return fmt.Errorf("%w: %.1f (want 0-%.0f)", ErrQualityOutOfRange, in.Quality, MaxQualityScore)
	}
	if in.Stress < 0 || in.Stress > MaxStressLevel {
		return fmt.Errorf("%w: %.1f (want 0-%.0f)", ErrStressOutOfRange, in.Stress, MaxStressLevel)
	}
	if in.DeepPct < 0 || in.DeepPct > MaxStagePct {
		return fmt.Errorf("%w: deep %.1f (want 0-%.0f)", ErrStagePctOutOfRange, in.DeepPct, MaxStagePct)
	}
	if in.RemPct < 0 || in.RemPct > MaxStagePct {
		return fmt.Errorf("%w: rem %.1f (want 0-%.0f)", ErrStagePctOutOfRange, in.RemPct, MaxStagePct)
	}
	if in.HeartRate < MinHeartRate || in.HeartRate > MaxHeartRate {
		return fmt.Errorf("%w: %.0f (want %.0f-%.0f bpm)", ErrHeartRateOutOfRange, in.HeartRate, MinHeartRate, MaxHeartRate)
	}
	return nil
}

// FromRecord builds an AssessmentInput from a sleep record and the subject's
// age. Stage percentages beyond the assessment scale are clamped rather than
// rejected, since tracker data occasionally reports outliers.
func FromRecord(r SleepRecord, age int) AssessmentInput {
	return AssessmentInput{
		Age:       age,
		Duration:  Clamp(r.Duration, MinSleepHours, MaxSleepHours),
		Quality:   Clamp(r.Quality, 0, MaxQualityScore),
		Stress:    Clamp(r.Stress, 0, MaxStressLevel),
		DeepPct:   Clamp(r.DeepPct, 0, MaxStagePct),
		RemPct:    Clamp(r.RemPct, 0, MaxStagePct),
		HeartRate: Clamp(r.HeartRate, MinHeartRate, MaxHeartRate),
	}
}
