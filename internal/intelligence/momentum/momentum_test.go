package momentum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"place-intelligence/internal/models"
)

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func reportsAt(daysAgo float64, count int, wifi, busy, noise float64, laptop bool) []models.VisitReport {
	out := make([]models.VisitReport, count)
	for i := range out {
		out[i] = models.VisitReport{
			Wifi:           models.Float(wifi),
			Busyness:       models.Float(busy),
			Noise:          models.Float(noise),
			LaptopFriendly: models.Bool(laptop),
			CreatedAt:      now.Add(-time.Duration(daysAgo*24) * time.Hour),
		}
	}
	return out
}

func join(parts ...[]models.VisitReport) []models.VisitReport {
	var out []models.VisitReport
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDetect_InsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		reports []models.VisitReport
	}{
		{"none", nil},
		{"five total", join(reportsAt(1, 3, 5, 1, 1, true), reportsAt(8, 2, 1, 5, 5, false))},
		{"thin recent window", join(reportsAt(1, 2, 5, 1, 1, true), reportsAt(8, 6, 1, 5, 5, false))},
		{"thin previous window", join(reportsAt(1, 8, 5, 1, 1, true), reportsAt(9, 2, 1, 5, 5, false))},
		{"old reports ignored", join(reportsAt(1, 3, 5, 1, 1, true), reportsAt(20, 5, 1, 5, 5, false))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Detect(tt.reports, now)
			assert.Equal(t, models.TrendInsufficientData, m.Trend)
			assert.Zero(t, m.Delta)
			assert.Equal(t, models.MomentumDeltas{}, m.Deltas)
		})
	}
}

func TestDetect_Improving(t *testing.T) {
	reports := join(
		reportsAt(2, 3, 4.5, 2, 2, true),
		reportsAt(10, 3, 3.0, 3, 3, false),
	)

	m := Detect(reports, now)

	// 3*1.5 - 2.5*(-1) - 2.5*(-1) + 5*1 = 14.5
	assert.Equal(t, models.TrendImproving, m.Trend)
	assert.Equal(t, 14.5, m.Delta)
	assert.Equal(t, 1.5, m.Deltas.Wifi)
	assert.Equal(t, -1.0, m.Deltas.Busyness)
	assert.Equal(t, -1.0, m.Deltas.Noise)
	assert.Equal(t, 1.0, m.Deltas.Laptop)
}

func TestDetect_DecliningIsClamped(t *testing.T) {
	reports := join(
		reportsAt(1, 4, 1, 5, 5, false),
		reportsAt(9, 4, 5, 1, 1, true),
	)

	m := Detect(reports, now)
	assert.Equal(t, models.TrendDeclining, m.Trend)
	assert.Equal(t, -20.0, m.Delta)
}

func TestDetect_StableBelowThreshold(t *testing.T) {
	reports := join(
		reportsAt(3, 3, 4, 3, 3, true),
		reportsAt(11, 3, 3, 3, 3, true),
	)

	m := Detect(reports, now)
	assert.Equal(t, models.TrendStable, m.Trend)
	assert.Equal(t, 3.0, m.Delta)
}

func TestDetect_WindowBoundary(t *testing.T) {
	// exactly seven days ago belongs to the recent window
	reports := join(
		reportsAt(7, 3, 5, 1, 1, true),
		reportsAt(13, 3, 3, 3, 3, true),
	)

	m := Detect(reports, now)
	assert.NotEqual(t, models.TrendInsufficientData, m.Trend)
	assert.Equal(t, 2.0, m.Deltas.Wifi)
}
