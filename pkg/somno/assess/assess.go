package assess

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/somnolab/somno/pkg/somno/types"
)

// Assessment is the complete result of one health assessment.
type Assessment struct {
	ID              string                `json:"id"`
	CreatedAt       time.Time             `json:"created_at"`
	Input           types.AssessmentInput `json:"input"`
	RiskScore       int                   `json:"risk_score"`
	RiskBand        RiskBand              `json:"risk_band"`
	Conditions      []string              `json:"conditions"`
	LifeImpact      float64               `json:"life_impact_years"`
	Recommendations []string              `json:"recommendations"`
}

// Assess validates the input and runs the full model: risk score and band,
// condition predictions, life-expectancy impact, and recommendations.
func Assess(in types.AssessmentInput) (*Assessment, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assessment input: %w", err)
	}

	score := RiskScore(in)

	return &Assessment{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Input:           in,
		RiskScore:       score,
		RiskBand:        Band(score),
		Conditions:      PredictConditions(in),
		LifeImpact:      LifeImpact(in),
		Recommendations: Recommend(in),
	}, nil
}
