package assess

import "github.com/somnolab/somno/pkg/somno/types"

// Condition labels for the predicted health conditions.
const (
	ConditionCardiovascular = "Increased cardiovascular risk"
	ConditionMetabolic      = "Metabolic disorder risk"
	ConditionCognitive      = "Cognitive decline risk"
	ConditionMentalHealth   = "Mental health vulnerability"
	ConditionAgeRelated     = "Age-related sleep disorder risk"
)

// PredictConditions returns the potential health conditions indicated by the
// input metrics. An empty slice means no significant risks were detected.
func PredictConditions(in types.AssessmentInput) []string {
	var conditions []string

	if in.Duration < 6 && in.HeartRate > 70 {
		conditions = append(conditions, ConditionCardiovascular)
	}
	if in.Duration < 6 || in.Duration > 9 {
		conditions = append(conditions, ConditionMetabolic)
	}
	if in.DeepPct < 15 || in.RemPct < 20 {
		conditions = append(conditions, ConditionCognitive)
	}
	if in.Stress > 7 && in.Quality < 70 {
		conditions = append(conditions, ConditionMentalHealth)
	}
	if in.Age > 50 && in.DeepPct < 18 {
		conditions = append(conditions, ConditionAgeRelated)
	}

	return conditions
}
