package assess

import "github.com/somnolab/somno/pkg/somno/types"

// Recommendation strings returned by Recommend.
const (
	RecommendDuration = "Increase sleep duration to at least 7 hours"
	RecommendQuality  = "Improve sleep quality through better sleep hygiene"
	RecommendStress   = "Implement stress management techniques"
	RecommendDeep     = "Focus on improving deep sleep through exercise"
	RecommendRem      = "Improve REM sleep by maintaining regular sleep patterns"
)

// Recommend returns personalized recommendations for the input metrics.
func Recommend(in types.AssessmentInput) []string {
	var recs []string

	if in.Duration < 7 {
		recs = append(recs, RecommendDuration)
	}
	if in.Quality < 75 {
		recs = append(recs, RecommendQuality)
	}
	if in.Stress > 6 {
		recs = append(recs, RecommendStress)
	}
	if in.DeepPct < 15 {
		recs = append(recs, RecommendDeep)
	}
	if in.RemPct < 20 {
		recs = append(recs, RecommendRem)
	}

	return recs
}
