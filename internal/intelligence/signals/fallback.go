package signals

import (
	"strings"

	"place-intelligence/internal/models"
)

const (
	wifiMidpoint   = 3.0
	wifiTarget     = 5.0
	noiseMidpoint  = 3.0
	laptopMidpoint = 0.5
	laptopTarget   = 1.0

	// storedWifiValue applies when the venue document only says "has wifi".
	storedWifiValue = 3.5
)

// Resolved is a factor value with the source that backs it. Value is nil for ProvenanceNone.
type Resolved struct {
	Value  *float64
	Source models.Provenance
}

func (r Resolved) Present() bool { return r.Value != nil }

// Factors carries every work factor the composer consumes.
type Factors struct {
	Wifi     Resolved
	Noise    Resolved
	Laptop   Resolved
	Busyness Resolved
	Outlets  Resolved
}

// AnyInferred reports whether an NLP estimate stands in for a missing observation.
func (f Factors) AnyInferred() bool {
	return f.Wifi.Source == models.ProvenanceInferred ||
		f.Noise.Source == models.ProvenanceInferred ||
		f.Laptop.Source == models.ProvenanceInferred
}

// ResolveFactors picks observed values first, then confidence-discounted review inferences,
// then the stored venue document, else none.
func ResolveFactors(s Summary, inferred *models.InferredReviewSignal, stored *models.StoredIntel) Factors {
	f := Factors{
		Wifi:     observed(s.Wifi),
		Noise:    observed(s.Noise),
		Laptop:   observed(s.LaptopRate),
		Busyness: observed(s.Busyness),
		Outlets:  observed(s.Outlets),
	}

	if inferred != nil {
		if !f.Wifi.Present() && inferred.HasWifi != nil && *inferred.HasWifi {
			f.Wifi = blend(wifiMidpoint, wifiTarget, inferred.WifiConfidence)
		}
		if !f.Noise.Present() && inferred.Noise != "" {
			if target, ok := models.NoiseLabels[strings.ToLower(inferred.Noise)]; ok {
				f.Noise = blend(noiseMidpoint, target, inferred.NoiseConfidence)
			}
		}
		if !f.Laptop.Present() && inferred.GoodForStudying != nil && *inferred.GoodForStudying {
			f.Laptop = blend(laptopMidpoint, laptopTarget, inferred.StudyConfidence)
		}
	}

	if !f.Wifi.Present() && stored != nil && stored.HasWifi != nil && *stored.HasWifi {
		v := storedWifiValue
		f.Wifi = Resolved{Value: &v, Source: models.ProvenanceAPI}
	}

	return f
}

func observed(v *float64) Resolved {
	if v == nil {
		return Resolved{Source: models.ProvenanceNone}
	}
	return Resolved{Value: v, Source: models.ProvenanceObserved}
}

func blend(midpoint, target, confidence float64) Resolved {
	v := midpoint + (target-midpoint)*models.Clamp01(confidence)
	return Resolved{Value: &v, Source: models.ProvenanceInferred}
}
