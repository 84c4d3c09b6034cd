// internal/models/visit_report.go
package models

import (
	"strings"
	"time"
)

// VisitReport is one user check-in. Owned by the app backend; the engine only reads it.
type VisitReport struct {
	ID             string    `json:"id"`
	VenueID        string    `json:"venueId"`
	UserID         string    `json:"userId,omitempty"`
	Wifi           *float64  `json:"wifi,omitempty"`
	Noise          *float64  `json:"noise,omitempty"`
	NoiseLabel     string    `json:"noiseLabel,omitempty"`
	Busyness       *float64  `json:"busyness,omitempty"`
	BusynessLabel  string    `json:"busynessLabel,omitempty"`
	Outlets        *float64  `json:"outlets,omitempty"`
	OutletLabel    string    `json:"outletLabel,omitempty"`
	LaptopFriendly *bool     `json:"laptopFriendly,omitempty"`
	DrinkQuality   *float64  `json:"drinkQuality,omitempty"`
	DrinkPrice     *float64  `json:"drinkPrice,omitempty"`
	Intents        []string  `json:"intents,omitempty"`
	Ambiance       string    `json:"ambiance,omitempty"`
	PhotoTags      []string  `json:"photoTags,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Categorical labels map onto the 1-5 scale. "lively" and "loud" both land on 4.
var (
	NoiseLabels = map[string]float64{
		"quiet":    2,
		"moderate": 3,
		"lively":   4,
		"loud":     4,
	}
	BusynessLabels = map[string]float64{
		"empty":  1,
		"some":   3,
		"busy":   4,
		"packed": 5,
	}
	OutletLabels = map[string]float64{
		"plenty": 5,
		"some":   3,
		"few":    2,
		"none":   1,
	}
)

// WifiValue returns the clamped connectivity rating, if any.
func (r VisitReport) WifiValue() *float64 {
	return scaleValue(r.Wifi, "", nil)
}

// NoiseValue prefers the numeric rating over the label.
func (r VisitReport) NoiseValue() *float64 {
	return scaleValue(r.Noise, r.NoiseLabel, NoiseLabels)
}

func (r VisitReport) BusynessValue() *float64 {
	return scaleValue(r.Busyness, r.BusynessLabel, BusynessLabels)
}

func (r VisitReport) OutletsValue() *float64 {
	return scaleValue(r.Outlets, r.OutletLabel, OutletLabels)
}

func (r VisitReport) DrinkQualityValue() *float64 {
	return scaleValue(r.DrinkQuality, "", nil)
}

func (r VisitReport) DrinkPriceValue() *float64 {
	return scaleValue(r.DrinkPrice, "", nil)
}

func scaleValue(numeric *float64, label string, table map[string]float64) *float64 {
	if numeric != nil {
		v := Clamp(*numeric, 1, 5)
		return &v
	}
	if label == "" || table == nil {
		return nil
	}
	if v, ok := table[strings.ToLower(strings.TrimSpace(label))]; ok {
		return &v
	}
	return nil
}
