// internal/models/signals.go
package models

// ExternalRatingSignal is one third-party source's view of a venue.
type ExternalRatingSignal struct {
	Source      string   `json:"source"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"reviewCount,omitempty"`
	PriceLevel  *int     `json:"priceLevel,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// InferredReviewSignal is produced by the review-analysis function and passed in by the caller.
type InferredReviewSignal struct {
	Noise                 string  `json:"noise,omitempty"` // quiet, moderate, loud
	NoiseConfidence       float64 `json:"noiseConfidence,omitempty"`
	HasWifi               *bool   `json:"hasWifi,omitempty"`
	WifiConfidence        float64 `json:"wifiConfidence,omitempty"`
	GoodForStudying       *bool   `json:"goodForStudying,omitempty"`
	GoodForDates          *bool   `json:"goodForDates,omitempty"`
	GoodForGroups         *bool   `json:"goodForGroups,omitempty"`
	StudyConfidence       float64 `json:"studyConfidence,omitempty"`
	PhotogenicConfidence  float64 `json:"photogenicConfidence,omitempty"`
	FoodQualityConfidence float64 `json:"foodQualityConfidence,omitempty"`
	Ambiance              string  `json:"ambiance,omitempty"`
	MusicStyle            string  `json:"musicStyle,omitempty"`
	SeatingStyle          string  `json:"seatingStyle,omitempty"`
}

type WeatherCondition string

const (
	ConditionClear   WeatherCondition = "clear"
	ConditionCloudy  WeatherCondition = "cloudy"
	ConditionRain    WeatherCondition = "rain"
	ConditionSnow    WeatherCondition = "snow"
	ConditionUnknown WeatherCondition = "unknown"
)

type CrowdImpact string

const (
	ImpactIncrease CrowdImpact = "increase"
	ImpactDecrease CrowdImpact = "decrease"
	ImpactNeutral  CrowdImpact = "neutral"
)

// ContextSignal is one weather observation near the venue.
type ContextSignal struct {
	Condition       WeatherCondition `json:"condition"`
	CrowdImpact     CrowdImpact      `json:"crowdImpact"`
	Confidence      float64          `json:"confidence"`
	WeatherCode     int              `json:"weatherCode"`
	TemperatureC    *float64         `json:"temperatureC,omitempty"`
	PrecipitationMM *float64         `json:"precipitationMm,omitempty"`
}

// StoredIntel is the venue document's third-party-derived baseline.
type StoredIntel struct {
	Category    string   `json:"category,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"reviewCount,omitempty"`
	PriceLevel  *int     `json:"priceLevel,omitempty"`
	IsOutdoor   bool     `json:"isOutdoor,omitempty"`
	HasWifi     *bool    `json:"hasWifi,omitempty"`
}

// Venue identifies the place being scored.
type Venue struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	Categories []string `json:"categories,omitempty"`
	OpenNow    *bool    `json:"openNow,omitempty"`
}
