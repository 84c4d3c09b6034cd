// Package momentum compares two adjacent trailing windows of reports.
package momentum

import (
	"math"
	"time"

	"place-intelligence/internal/intelligence/signals"
	"place-intelligence/internal/models"
)

const (
	Window = 7 * 24 * time.Hour

	minTotal     = 6
	minPerWindow = 3

	weightWifi     = 3.0
	weightBusyness = -2.5
	weightNoise    = -2.5
	weightLaptop   = 5.0

	maxDelta       = 20.0
	stableBoundary = 4.0
)

// Insufficient is the answer whenever the sample is too thin to assert a trend.
func Insufficient() models.Momentum {
	return models.Momentum{Trend: models.TrendInsufficientData}
}

// Detect classifies the trend between [now-7d, now] and [now-14d, now-7d).
func Detect(reports []models.VisitReport, now time.Time) models.Momentum {
	recentStart := now.Add(-Window)
	previousStart := now.Add(-2 * Window)

	var recent, previous []models.VisitReport
	for _, r := range reports {
		switch {
		case r.CreatedAt.After(now):
		case !r.CreatedAt.Before(recentStart):
			recent = append(recent, r)
		case !r.CreatedAt.Before(previousStart):
			previous = append(previous, r)
		}
	}

	if len(recent)+len(previous) < minTotal || len(recent) < minPerWindow || len(previous) < minPerWindow {
		return Insufficient()
	}

	rs := signals.Extract(recent, nil)
	ps := signals.Extract(previous, nil)

	deltas := models.MomentumDeltas{
		Wifi:     diff(rs.Wifi, ps.Wifi),
		Busyness: diff(rs.Busyness, ps.Busyness),
		Noise:    diff(rs.Noise, ps.Noise),
		Laptop:   diff(rs.LaptopRate, ps.LaptopRate),
	}

	score := weightWifi*deltas.Wifi +
		weightBusyness*deltas.Busyness +
		weightNoise*deltas.Noise +
		weightLaptop*deltas.Laptop
	score = models.Round1(models.Clamp(score, -maxDelta, maxDelta))

	trend := models.TrendStable
	switch {
	case math.Abs(score) < stableBoundary:
	case score > 0:
		trend = models.TrendImproving
	default:
		trend = models.TrendDeclining
	}

	return models.Momentum{
		Trend: trend,
		Delta: score,
		Deltas: models.MomentumDeltas{
			Wifi:     models.Round3(deltas.Wifi),
			Busyness: models.Round3(deltas.Busyness),
			Noise:    models.Round3(deltas.Noise),
			Laptop:   models.Round3(deltas.Laptop),
		},
	}
}

func diff(recent, previous *float64) float64 {
	if recent == nil || previous == nil {
		return 0
	}
	return *recent - *previous
}
