// internal/models/intelligence.go
package models

import "time"

// Provenance records which source backs a factor.
type Provenance string

const (
	ProvenanceObserved Provenance = "observed"
	ProvenanceInferred Provenance = "inferred"
	ProvenanceAPI      Provenance = "api"
	ProvenanceNone     Provenance = "none"
)

// Breakdown factor names, in output order.
const (
	FactorBaseline  = "baseline"
	FactorWifi      = "wifi"
	FactorOutlets   = "outlets"
	FactorNoise     = "noise"
	FactorCrowd     = "crowd"
	FactorLaptop    = "laptop"
	FactorTags      = "tags"
	FactorRating    = "rating"
	FactorStudy     = "study"
	FactorOpen      = "open"
	FactorMomentum  = "momentum"
	FactorNightlife = "nightlife"
)

var FactorNames = []string{
	FactorBaseline, FactorWifi, FactorOutlets, FactorNoise, FactorCrowd, FactorLaptop,
	FactorTags, FactorRating, FactorStudy, FactorOpen, FactorMomentum, FactorNightlife,
}

type FactorScore struct {
	Name   string     `json:"name"`
	Points float64    `json:"points"`
	Source Provenance `json:"source"`
}

type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

type MomentumDeltas struct {
	Wifi     float64 `json:"wifi"`
	Busyness float64 `json:"busyness"`
	Noise    float64 `json:"noise"`
	Laptop   float64 `json:"laptop"`
}

type Momentum struct {
	Trend  Trend          `json:"trend"`
	Delta  float64        `json:"delta"`
	Deltas MomentumDeltas `json:"deltas"`
}

type Reliability struct {
	SampleSize      int     `json:"sampleSize"`
	DataCoverage    float64 `json:"dataCoverage"`
	VariancePenalty float64 `json:"variancePenalty"`
	Score           float64 `json:"score"`
}

// EmptyReliability is the fixed answer for a venue without reports.
func EmptyReliability() Reliability {
	return Reliability{SampleSize: 0, DataCoverage: 0, VariancePenalty: 1, Score: 0.1}
}

type ExternalSignalMeta struct {
	ProviderCount     int     `json:"providerCount"`
	ProviderDiversity float64 `json:"providerDiversity"`
	TotalReviews      int     `json:"totalReviews"`
	RatingConsensus   float64 `json:"ratingConsensus"`
	TrustScore        float64 `json:"trustScore"`
}

type CrowdLevel string

const (
	CrowdLow      CrowdLevel = "low"
	CrowdModerate CrowdLevel = "moderate"
	CrowdHigh     CrowdLevel = "high"
	CrowdUnknown  CrowdLevel = "unknown"
)

type BestTime string

const (
	BestTimeMorning   BestTime = "morning"
	BestTimeAfternoon BestTime = "afternoon"
	BestTimeEvening   BestTime = "evening"
	BestTimeLate      BestTime = "late"
	BestTimeUnknown   BestTime = "unknown"
)

type Vibe string

const (
	VibeStudy     Vibe = "study"
	VibeDate      Vibe = "date"
	VibeSocial    Vibe = "social"
	VibeQuickStop Vibe = "quick_stop"
	VibeAesthetic Vibe = "aesthetic"
)

// VibeOrder is the tie-break order for primary vibe selection.
var VibeOrder = []Vibe{VibeStudy, VibeDate, VibeSocial, VibeQuickStop, VibeAesthetic}

// VibeScores holds one 0-100 score per dimension.
type VibeScores map[Vibe]float64

type UseCase string

const (
	UseCaseDeepWork     UseCase = "deep_work"
	UseCaseDateNight    UseCase = "date_night"
	UseCaseGroupHangout UseCase = "group_hangout"
	UseCaseQuickCoffee  UseCase = "quick_coffee"
	UseCasePhotoSpot    UseCase = "photo_spot"
)

type CrowdForecastPoint struct {
	HourOffset int        `json:"hourOffset"`
	Label      string     `json:"label"`
	Level      CrowdLevel `json:"level"`
	Score      float64    `json:"score"`
	Confidence float64    `json:"confidence"`
}

// PlaceIntelligence is the engine's only output.
type PlaceIntelligence struct {
	VenueID         string                 `json:"venueId,omitempty"`
	WorkScore       int                    `json:"workScore"`
	VibeScores      VibeScores             `json:"vibeScores"`
	PrimaryVibe     Vibe                   `json:"primaryVibe"`
	Breakdown       []FactorScore          `json:"breakdown"`
	CrowdLevel      CrowdLevel             `json:"crowdLevel"`
	BestTime        BestTime               `json:"bestTime"`
	Confidence      float64                `json:"confidence"`
	Reliability     Reliability            `json:"reliability"`
	Momentum        Momentum               `json:"momentum"`
	Highlights      []string               `json:"highlights"`
	UseCases        []UseCase              `json:"useCases"`
	ExternalSignals []ExternalRatingSignal `json:"externalSignals"`
	ExternalMeta    ExternalSignalMeta     `json:"externalMeta"`
	ContextSignals  []ContextSignal        `json:"contextSignals"`
	Forecast        []CrowdForecastPoint   `json:"forecast"`
	ModelVersion    string                 `json:"modelVersion"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}

// Factor returns the named breakdown entry.
func (p *PlaceIntelligence) Factor(name string) (FactorScore, bool) {
	for _, f := range p.Breakdown {
		if f.Name == name {
			return f, true
		}
	}
	return FactorScore{}, false
}
