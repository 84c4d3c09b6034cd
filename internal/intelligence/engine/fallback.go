package engine

import (
	"time"

	"place-intelligence/internal/intelligence/momentum"
	"place-intelligence/internal/models"
)

const (
	FallbackWorkScore  = 50
	FallbackConfidence = 0.1
)

// Fallback is the fixed result returned whenever a build cannot complete.
func Fallback(venueID, modelVersion string, now time.Time) *models.PlaceIntelligence {
	breakdown := make([]models.FactorScore, 0, len(models.FactorNames))
	for _, name := range models.FactorNames {
		breakdown = append(breakdown, models.FactorScore{Name: name, Points: 0, Source: models.ProvenanceNone})
	}

	scores := make(models.VibeScores, len(models.VibeOrder))
	for _, v := range models.VibeOrder {
		scores[v] = 0
	}

	return &models.PlaceIntelligence{
		VenueID:         venueID,
		WorkScore:       FallbackWorkScore,
		VibeScores:      scores,
		PrimaryVibe:     models.VibeOrder[0],
		Breakdown:       breakdown,
		CrowdLevel:      models.CrowdUnknown,
		BestTime:        models.BestTimeUnknown,
		Confidence:      FallbackConfidence,
		Reliability:     models.EmptyReliability(),
		Momentum:        momentum.Insufficient(),
		Highlights:      []string{},
		UseCases:        []models.UseCase{},
		ExternalSignals: []models.ExternalRatingSignal{},
		ContextSignals:  []models.ContextSignal{},
		Forecast:        []models.CrowdForecastPoint{},
		ModelVersion:    modelVersion,
		GeneratedAt:     now.UTC(),
	}
}
