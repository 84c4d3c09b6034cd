package external

import (
	"math"

	"place-intelligence/internal/models"
)

const (
	fullDiversityProviders = 3.0
	singleRatingConsensus  = 0.6
	consensusSpread        = 2.5
)

// ComputeMeta summarises how far the external signals can be trusted.
func ComputeMeta(signals []models.ExternalRatingSignal) models.ExternalSignalMeta {
	if len(signals) == 0 {
		return models.ExternalSignalMeta{}
	}

	sources := map[string]struct{}{}
	total := 0
	var ratings []float64
	for _, s := range signals {
		sources[s.Source] = struct{}{}
		if s.ReviewCount != nil && *s.ReviewCount > 0 {
			total += *s.ReviewCount
		}
		if s.Rating != nil {
			ratings = append(ratings, *s.Rating)
		}
	}

	diversity := math.Min(1, float64(len(sources))/fullDiversityProviders)
	consensus := ratingConsensus(ratings)
	volume := models.Clamp01(math.Log10(1+float64(total)) / 3)

	return models.ExternalSignalMeta{
		ProviderCount:     len(sources),
		ProviderDiversity: models.Round3(diversity),
		TotalReviews:      total,
		RatingConsensus:   models.Round3(consensus),
		TrustScore:        models.Round3(models.Clamp01(0.4*diversity + 0.35*consensus + 0.25*volume)),
	}
}

func ratingConsensus(ratings []float64) float64 {
	switch len(ratings) {
	case 0:
		return 0
	case 1:
		return singleRatingConsensus
	}
	lo, hi := ratings[0], ratings[0]
	for _, r := range ratings[1:] {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	return models.Clamp01(1 - (hi-lo)/consensusSpread)
}
