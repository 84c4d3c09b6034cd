package weather

import (
	"math"

	"place-intelligence/internal/models"
)

// rainThresholdMM reclassifies a cloudy or unknown code as rain.
const rainThresholdMM = 0.2

// Condition maps a WMO weather code onto the coarse condition set.
func Condition(code int) models.WeatherCondition {
	switch {
	case code == 0 || code == 1:
		return models.ConditionClear
	case code == 2 || code == 3 || code == 45 || code == 48:
		return models.ConditionCloudy
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82) || (code >= 95 && code <= 99):
		return models.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return models.ConditionSnow
	default:
		return models.ConditionUnknown
	}
}

// Classify builds the context signal for one observation.
func Classify(c Current) models.ContextSignal {
	code := -1
	if c.WeatherCode != nil {
		code = *c.WeatherCode
	}
	precip := 0.0
	if c.Precipitation != nil && *c.Precipitation > 0 {
		precip = *c.Precipitation
	}

	condition := Condition(code)
	if (condition == models.ConditionCloudy || condition == models.ConditionUnknown) && precip >= rainThresholdMM {
		condition = models.ConditionRain
	}

	sig := models.ContextSignal{
		Condition:       condition,
		WeatherCode:     code,
		TemperatureC:    c.Temperature,
		PrecipitationMM: c.Precipitation,
	}

	switch condition {
	case models.ConditionSnow:
		sig.CrowdImpact = models.ImpactIncrease
		sig.Confidence = 0.8
	case models.ConditionRain:
		sig.CrowdImpact = models.ImpactIncrease
		sig.Confidence = models.Round3(0.55 + 0.35*math.Min(precip, 5)/5)
	case models.ConditionClear:
		sig.CrowdImpact = models.ImpactDecrease
		sig.Confidence = 0.5
	case models.ConditionCloudy:
		sig.CrowdImpact = models.ImpactNeutral
		sig.Confidence = 0.35
	default:
		sig.CrowdImpact = models.ImpactNeutral
		sig.Confidence = 0.2
	}
	return sig
}
