package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-intelligence/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================


func report(hour int, mutate func(*models.VisitReport)) models.VisitReport {
	r := models.VisitReport{
		ID:        "r",
		VenueID:   "venue-1",
		CreatedAt: time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

// ==========================
// Extract
// ==========================

func TestExtract_EmptyInput(t *testing.T) {
	s := Extract(nil, nil)

	assert.Equal(t, 0, s.SampleSize)
	assert.Nil(t, s.Wifi)
	assert.Nil(t, s.Noise)
	assert.Nil(t, s.Busyness)
	assert.Nil(t, s.Outlets)
	assert.Nil(t, s.LaptopRate)
	assert.Empty(t, s.Hours)
	assert.Empty(t, s.AmbianceCounts)
	assert.Empty(t, s.TopPhotoTags)
	assert.Equal(t, 0, s.ObservationCount())
}

func TestExtract_AveragesSkipMissingValuesIndependently(t *testing.T) {
	reports := []models.VisitReport{
		report(9, func(r *models.VisitReport) {
			r.Wifi = models.Float(4)
			r.NoiseLabel = "quiet"
			r.LaptopFriendly = models.Bool(true)
		}),
		report(9, func(r *models.VisitReport) {
			r.Wifi = models.Float(5)
			r.BusynessLabel = "packed"
			r.LaptopFriendly = models.Bool(false)
		}),
		report(14, func(r *models.VisitReport) {
			r.Noise = models.Float(4)
			r.Busyness = models.Float(1)
			r.OutletLabel = "plenty"
		}),
	}

	s := Extract(reports, time.UTC)

	require.NotNil(t, s.Wifi)
	assert.InDelta(t, 4.5, *s.Wifi, 1e-9)
	require.NotNil(t, s.Noise)
	assert.InDelta(t, 3.0, *s.Noise, 1e-9)
	require.NotNil(t, s.Busyness)
	assert.InDelta(t, 3.0, *s.Busyness, 1e-9)
	require.NotNil(t, s.Outlets)
	assert.InDelta(t, 5.0, *s.Outlets, 1e-9)
	require.NotNil(t, s.LaptopRate)
	assert.InDelta(t, 0.5, *s.LaptopRate, 1e-9)
	assert.Equal(t, 2+2+2+2, s.ObservationCount())

	assert.Equal(t, 2, s.Hours[9].Count)
	assert.Equal(t, 1, s.Hours[9].BusynessCount)
	assert.InDelta(t, 5.0, *s.Hours[9].AvgBusyness(), 1e-9)
	assert.Equal(t, 1, s.Hours[14].Count)
	assert.Nil(t, s.Hours[3].AvgBusyness())
}

func TestExtract_HoursFollowLocation(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	s := Extract([]models.VisitReport{report(17, nil)}, loc)

	assert.Equal(t, 1, s.Hours[9].Count)
	assert.Zero(t, s.Hours[17].Count)
}

func TestExtract_TagCounters(t *testing.T) {
	reports := []models.VisitReport{
		report(9, func(r *models.VisitReport) {
			r.Ambiance = "Cozy"
			r.Intents = []string{"work", "coffee"}
			r.PhotoTags = []string{"latte", "window", "plants", "books", "neon"}
		}),
		report(10, func(r *models.VisitReport) {
			r.Ambiance = "cozy"
			r.Intents = []string{"study"}
			r.PhotoTags = []string{"latte", "window"}
		}),
		report(11, func(r *models.VisitReport) {
			r.Ambiance = "lively"
			r.PhotoTags = []string{"laptop_setup"}
		}),
	}

	s := Extract(reports, nil)

	assert.Equal(t, "cozy", s.DominantAmbiance)
	assert.Equal(t, 2, s.AmbianceCounts["cozy"])
	assert.Equal(t, []string{"latte", "window", "books", "laptop_setup"}, s.TopPhotoTags)
	assert.Len(t, s.PhotoTagCounts, 4)
	assert.Equal(t, []string{"coffee", "study"}, s.TopIntents(2))
	assert.True(t, s.HasIntent("work"))
	assert.False(t, s.HasIntent("quick"))

	// work + study + cozy x2 + laptop_setup
	assert.Equal(t, 5, s.TagOccurrences("work", "study", "cozy", "laptop"))
}

// ==========================
// ResolveFactors
// ==========================

func TestResolveFactors_ObservedWins(t *testing.T) {
	s := Extract([]models.VisitReport{report(9, func(r *models.VisitReport) {
		r.Wifi = models.Float(2)
		r.NoiseLabel = "loud"
		r.LaptopFriendly = models.Bool(true)
	})}, nil)

	inferred := &models.InferredReviewSignal{
		HasWifi: models.Bool(true), WifiConfidence: 1,
		Noise: "quiet", NoiseConfidence: 1,
		GoodForStudying: models.Bool(true), StudyConfidence: 1,
	}

	f := ResolveFactors(s, inferred, nil)
	assert.Equal(t, models.ProvenanceObserved, f.Wifi.Source)
	assert.Equal(t, 2.0, *f.Wifi.Value)
	assert.Equal(t, models.ProvenanceObserved, f.Noise.Source)
	assert.Equal(t, 4.0, *f.Noise.Value)
	assert.Equal(t, models.ProvenanceObserved, f.Laptop.Source)
	assert.False(t, f.AnyInferred())
}

func TestResolveFactors_InferenceBlend(t *testing.T) {
	tests := []struct {
		name     string
		inferred models.InferredReviewSignal
		pick     func(Factors) Resolved
		want     float64
	}{
		{"wifi full confidence", models.InferredReviewSignal{HasWifi: models.Bool(true), WifiConfidence: 1}, func(f Factors) Resolved { return f.Wifi }, 5},
		{"wifi half confidence", models.InferredReviewSignal{HasWifi: models.Bool(true), WifiConfidence: 0.5}, func(f Factors) Resolved { return f.Wifi }, 4},
		{"wifi confidence clamped", models.InferredReviewSignal{HasWifi: models.Bool(true), WifiConfidence: 7}, func(f Factors) Resolved { return f.Wifi }, 5},
		{"quiet", models.InferredReviewSignal{Noise: "quiet", NoiseConfidence: 0.8}, func(f Factors) Resolved { return f.Noise }, 2.2},
		{"loud", models.InferredReviewSignal{Noise: "loud", NoiseConfidence: 0.5}, func(f Factors) Resolved { return f.Noise }, 3.5},
		{"moderate", models.InferredReviewSignal{Noise: "moderate", NoiseConfidence: 0.9}, func(f Factors) Resolved { return f.Noise }, 3},
		{"studying", models.InferredReviewSignal{GoodForStudying: models.Bool(true), StudyConfidence: 0.6}, func(f Factors) Resolved { return f.Laptop }, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inferred := tt.inferred
			got := tt.pick(ResolveFactors(Extract(nil, nil), &inferred, nil))
			require.True(t, got.Present())
			assert.Equal(t, models.ProvenanceInferred, got.Source)
			assert.InDelta(t, tt.want, *got.Value, 1e-9)
		})
	}
}

func TestResolveFactors_NegativeInferenceIsIgnored(t *testing.T) {
	inferred := &models.InferredReviewSignal{
		HasWifi:         models.Bool(false),
		WifiConfidence:  0.9,
		GoodForStudying: models.Bool(false),
	}
	f := ResolveFactors(Extract(nil, nil), inferred, nil)

	assert.False(t, f.Wifi.Present())
	assert.Equal(t, models.ProvenanceNone, f.Wifi.Source)
	assert.Equal(t, models.ProvenanceNone, f.Laptop.Source)
	assert.Equal(t, models.ProvenanceNone, f.Busyness.Source)
	assert.Equal(t, models.ProvenanceNone, f.Outlets.Source)
}

func TestResolveFactors_StoredWifiFallback(t *testing.T) {
	stored := &models.StoredIntel{HasWifi: models.Bool(true)}
	f := ResolveFactors(Extract(nil, nil), nil, stored)

	require.True(t, f.Wifi.Present())
	assert.Equal(t, models.ProvenanceAPI, f.Wifi.Source)
	assert.Equal(t, 3.5, *f.Wifi.Value)
	assert.False(t, f.AnyInferred())
}
