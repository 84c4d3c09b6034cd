// Package vibe scores a venue on five use-case dimensions and picks the primary one.
package vibe

import (
	"math"
	"strings"

	"place-intelligence/internal/intelligence/signals"
	"place-intelligence/internal/models"
)

// Input is everything the classifier looks at. All fields are optional.
type Input struct {
	Summary  signals.Summary
	Factors  signals.Factors
	Inferred *models.InferredReviewSignal
	Hour     int
	OpenNow  *bool
}

// Result is the per-dimension scores plus the chosen primary vibe.
type Result struct {
	Scores  models.VibeScores
	Primary models.Vibe
}

var (
	cozyAmbiance   = []string{"cozy", "romantic", "intimate", "candle", "warm"}
	softAmbiance   = []string{"chill", "relaxed", "trendy", "artsy", "calm"}
	livelyAmbiance = []string{"lively", "energetic", "buzzing", "loud", "party"}
	groupIntents   = []string{"social", "meet", "group", "friends", "hangout"}
	workIntents    = []string{"work", "study"}
	quickIntents   = []string{"quick", "grab"}
)

// Classify is a pure function of its input.
func Classify(in Input) Result {
	s := in.Summary
	inf := in.Inferred
	if inf == nil {
		inf = &models.InferredReviewSignal{}
	}

	noise := valueOr(in.Factors.Noise.Value, s.Noise)
	quietness := 0.5
	quietnessMid := 0.5
	lively := 0.0
	if noise != nil {
		quietness = models.Clamp01((5 - *noise) / 4)
		quietnessMid = models.Clamp01(1 - math.Abs(*noise-2.5)/2.5)
		lively = models.Clamp01((*noise - 2) / 2)
	}
	ambiance := strings.ToLower(firstNonEmpty(s.DominantAmbiance, inf.Ambiance))
	if containsAny(ambiance, livelyAmbiance) {
		lively = 1
	}

	wifiNorm := 0.0
	if w := valueOr(in.Factors.Wifi.Value, s.Wifi); w != nil {
		wifiNorm = models.Clamp01((*w - 1) / 4)
	}
	laptopRate := 0.0
	if l := valueOr(in.Factors.Laptop.Value, s.LaptopRate); l != nil {
		laptopRate = models.Clamp01(*l)
	}

	busynessNorm := 0.5
	if b := s.Busyness; b != nil {
		busynessNorm = models.Clamp01((*b - 1) / 4)
	}

	cozy := 0.0
	switch {
	case containsAny(ambiance, cozyAmbiance):
		cozy = 1
	case containsAny(ambiance, softAmbiance):
		cozy = 0.6
	}
	if inf.GoodForDates != nil && *inf.GoodForDates && cozy < 0.8 {
		cozy = 0.8
	}

	photogenic := models.Clamp01(inf.PhotogenicConfidence)
	if len(s.TopPhotoTags) > 0 && photogenic < 0.5 {
		photogenic = 0.5
	}

	drinkQuality := 0.5
	if q := s.DrinkQuality; q != nil {
		drinkQuality = models.Clamp01((*q - 1) / 4)
	} else if inf.FoodQualityConfidence > 0 {
		drinkQuality = models.Clamp01(inf.FoodQualityConfidence)
	}
	drinkValue := 0.5
	if p := s.DrinkPrice; p != nil {
		drinkValue = models.Clamp01((5 - *p) / 4)
	}

	groups := 0.0
	if (inf.GoodForGroups != nil && *inf.GoodForGroups) || s.HasIntent(groupIntents...) {
		groups = 1
	}

	study := 40*quietness + 35*wifiNorm + 25*laptopRate
	if s.HasIntent(workIntents...) {
		study += 10
	}
	date := 35*cozy + 25*quietnessMid + 25*photogenic + 15*drinkQuality
	social := 40*busynessNorm + 30*groups + 30*lively
	quick := 50*(1-busynessNorm) + 30*drinkValue
	if s.HasIntent(quickIntents...) {
		quick += 20
	}
	aesthetic := 60*photogenic + 40*models.Clamp01(float64(len(s.TopPhotoTags))/4)

	switch {
	case in.Hour >= 5 && in.Hour <= 11:
		quick += 10
		study += 5
	case in.Hour >= 17 && in.Hour <= 22:
		date += 10
		social += 10
	}

	scores := models.VibeScores{
		models.VibeStudy:     bound(study),
		models.VibeDate:      bound(date),
		models.VibeSocial:    bound(social),
		models.VibeQuickStop: bound(quick),
		models.VibeAesthetic: bound(aesthetic),
	}

	closed := in.OpenNow != nil && !*in.OpenNow
	primary := models.VibeStudy
	best := -1.0
	for _, v := range models.VibeOrder {
		if closed && v == models.VibeQuickStop {
			continue
		}
		if scores[v] > best {
			best = scores[v]
			primary = v
		}
	}

	return Result{Scores: scores, Primary: primary}
}

func bound(v float64) float64 {
	return models.Round1(models.Clamp(v, 0, 100))
}

func valueOr(primary, fallback *float64) *float64 {
	if primary != nil {
		return primary
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
