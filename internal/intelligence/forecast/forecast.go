// Package forecast projects crowding over the next six hours from the hour-of-day histogram.
package forecast

import (
	"math"
	"time"

	"place-intelligence/internal/intelligence/signals"
	"place-intelligence/internal/models"
)

const (
	Points = 6

	densityWeight = 0.65
	crowdWeight   = 0.35

	fullConfidenceCount = 5.0
	emptyHourDiscount   = 0.3
)

// Build returns one point per hour starting at now's hour in loc (UTC when nil).
func Build(hours map[int]signals.HourStat, venueAvgBusy *float64, overallConfidence float64, now time.Time, loc *time.Location) []models.CrowdForecastPoint {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	overall := models.Clamp01(overallConfidence)

	maxCount := 0
	for _, h := range hours {
		if h.Count > maxCount {
			maxCount = h.Count
		}
	}

	points := make([]models.CrowdForecastPoint, 0, Points)
	for i := 0; i < Points; i++ {
		hour := (local.Hour() + i) % 24
		p := models.CrowdForecastPoint{HourOffset: i, Label: label(local, i)}

		stat := hours[hour]
		if stat.Count > 0 {
			density := float64(stat.Count) / float64(maxCount)
			score := density
			if busy := busynessFor(stat, venueAvgBusy); busy != nil {
				score = densityWeight*density + crowdWeight*normalize(*busy)
			}
			p.Score = models.Round3(models.Clamp01(score))
			p.Level = level(p.Score)
			p.Confidence = models.Round3(models.Clamp01(0.5*overall + 0.5*math.Min(1, float64(stat.Count)/fullConfidenceCount)))
		} else {
			if venueAvgBusy != nil {
				p.Score = models.Round3(models.Clamp01(normalize(*venueAvgBusy)))
				p.Level = level(p.Score)
			} else {
				p.Level = models.CrowdUnknown
			}
			p.Confidence = models.Round3(emptyHourDiscount * overall)
		}
		points = append(points, p)
	}
	return points
}

func busynessFor(stat signals.HourStat, venueAvg *float64) *float64 {
	if avg := stat.AvgBusyness(); avg != nil {
		return avg
	}
	return venueAvg
}

func normalize(busy float64) float64 {
	return (models.Clamp(busy, 1, 5) - 1) / 4
}

func level(score float64) models.CrowdLevel {
	switch {
	case score < 0.35:
		return models.CrowdLow
	case score < 0.65:
		return models.CrowdModerate
	default:
		return models.CrowdHigh
	}
}

func label(local time.Time, offset int) string {
	if offset == 0 {
		return "Now"
	}
	t := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location())
	return t.Add(time.Duration(offset) * time.Hour).Format("3 PM")
}
