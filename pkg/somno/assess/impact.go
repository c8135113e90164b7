package assess

import "github.com/somnolab/somno/pkg/somno/types"

// LifeImpact estimates the impact on life expectancy in years. The result is
// zero or negative: each adverse factor subtracts years, and the total is
// scaled up with age past 30.
func LifeImpact(in types.AssessmentInput) float64 {
	impact := 0.0

	switch {
	case in.Duration < 6:
		impact -= 3
	case in.Duration < 7:
		impact -= 1.5
	case in.Duration > 9:
		impact -= 1
	}

	switch {
	case in.Quality < 60:
		impact -= 2
	case in.Quality < 75:
		impact -= 1
	}

	if in.Stress > 7 {
		impact -= 2
	}

	ageFactor := 1.0
	if in.Age > 30 {
		ageFactor = 1 + float64(in.Age-30)/100
	}

	return impact * ageFactor
}
