// Package reliability scores how far the observed report data can be trusted.
package reliability

import (
	"math"

	"place-intelligence/internal/intelligence/signals"
	"place-intelligence/internal/models"
)

const (
	weightSample   = 0.55
	weightCoverage = 0.30
	weightSpread   = 0.15
	weightExternal = 0.12

	minScore = 0.05
	maxScore = 0.98

	trackedMetrics = 4
)

// Score combines sample size, coverage and spread of the four tracked metrics
// with the external trust score.
func Score(s signals.Summary, externalTrust float64) models.Reliability {
	n := s.SampleSize
	if n <= 0 {
		return models.EmptyReliability()
	}

	coverage := models.Clamp01(float64(s.ObservationCount()) / float64(n*trackedMetrics))

	penalty := (numericSpread(s.WifiValues) +
		numericSpread(s.BusynessValues) +
		numericSpread(s.NoiseValues) +
		voteSpread(s.LaptopVotes)) / trackedMetrics

	sample := models.Clamp01(math.Log10(1+float64(n)) / 2)

	composite := weightSample*sample +
		weightCoverage*coverage +
		weightSpread*(1-penalty) +
		weightExternal*models.Clamp01(externalTrust)

	return models.Reliability{
		SampleSize:      n,
		DataCoverage:    models.Round3(coverage),
		VariancePenalty: models.Round3(penalty),
		Score:           models.Round3(models.Clamp(composite, minScore, maxScore)),
	}
}

// numericSpread is the population stddev over half the scale; no data counts as maximal spread.
func numericSpread(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return models.Clamp01(math.Sqrt(variance) / 2)
}

// voteSpread is the Bernoulli variance scaled to peak at 1 for p = 0.5.
func voteSpread(votes []bool) float64 {
	p := signals.Rate(votes)
	if p == nil {
		return 1
	}
	return models.Clamp01(4 * *p * (1 - *p))
}
