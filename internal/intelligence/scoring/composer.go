// Package scoring composes the work score, its breakdown and the derived labels.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"place-intelligence/internal/intelligence/signals"
	"place-intelligence/internal/intelligence/vibe"
	"place-intelligence/internal/models"
)

const (
	HighlightNotSuitable = "Not suitable for focused work"

	maxHighlights = 4
	maxUseCases   = 3

	useCaseThreshold = 55.0
	deepWorkScore    = 70
)

var (
	workTags       = []string{"work", "study", "focus", "quiet", "laptop", "cozy", "wifi", "outlets", "seating", "tables"}
	seatingSignals = []string{"seat", "table", "wifi", "wi-fi", "outlet", "laptop"}
)

// Input is everything the composer blends. The caller resolves every upstream stage first.
type Input struct {
	Venue       models.Venue
	Stored      *models.StoredIntel
	Summary     signals.Summary
	Factors     signals.Factors
	External    []models.ExternalRatingSignal
	Meta        models.ExternalSignalMeta
	Context     []models.ContextSignal
	Momentum    models.Momentum
	Reliability models.Reliability
	Vibe        vibe.Result
}

// Composition is the composer's share of the final result.
type Composition struct {
	Profile          TypeProfile
	WorkScore        int
	Breakdown        []models.FactorScore
	AdjustedBusyness *float64
	CrowdLevel       models.CrowdLevel
	BestTime         models.BestTime
	Highlights       []string
	UseCases         []models.UseCase
	Confidence       float64
	Rating           *float64
}

type term struct {
	points float64
	source models.Provenance
}

// Compose blends every factor into the bounded work score.
func Compose(in Input) Composition {
	profile := ClassifyVenue(in.Venue.Name, venueCategories(in), in.Stored != nil && in.Stored.IsOutdoor)
	weather := primaryContext(in.Context)
	f := in.Factors

	terms := make(map[string]term, len(models.FactorNames))
	terms[models.FactorBaseline] = term{profile.Baseline, profile.Source}

	if v := f.Wifi.Value; v != nil {
		terms[models.FactorWifi] = term{(*v - 1) / 4 * 20, f.Wifi.Source}
	}
	if v := f.Outlets.Value; v != nil {
		terms[models.FactorOutlets] = term{(*v - 1) / 4 * 10, f.Outlets.Source}
	}
	if v := f.Noise.Value; v != nil {
		terms[models.FactorNoise] = term{(5 - *v) / 4 * 15, f.Noise.Source}
	}

	adjusted := adjustBusyness(f.Busyness.Value, weather)
	if adjusted != nil {
		terms[models.FactorCrowd] = term{(5 - *adjusted) / 4 * 10, f.Busyness.Source}
	}
	if v := f.Laptop.Value; v != nil {
		terms[models.FactorLaptop] = term{models.Clamp01(*v) * 8, f.Laptop.Source}
	}
	if n := in.Summary.TagOccurrences(workTags...); n > 0 {
		terms[models.FactorTags] = term{math.Min(10, 4*math.Log(1+float64(n))), models.ProvenanceObserved}
	}

	rating := weightedRating(in)
	if rating != nil {
		terms[models.FactorRating] = term{(*rating - 3) * 4 * (0.5 + 0.5*models.Clamp01(in.Meta.TrustScore)), models.ProvenanceAPI}
	}
	if profile.StudyBoost > 0 {
		terms[models.FactorStudy] = term{profile.StudyBoost, profile.Source}
	}
	if open := in.Venue.OpenNow; open != nil {
		if *open {
			terms[models.FactorOpen] = term{5, models.ProvenanceAPI}
		} else {
			terms[models.FactorOpen] = term{-10, models.ProvenanceAPI}
		}
	}
	if in.Momentum.Trend != models.TrendInsufficientData && in.Momentum.Trend != "" {
		terms[models.FactorMomentum] = term{in.Momentum.Delta * 0.5, models.ProvenanceObserved}
	}
	if profile.Type == VenueNightlife {
		terms[models.FactorNightlife] = term{-15, profile.Source}
	}

	raw := 0.0
	breakdown := make([]models.FactorScore, 0, len(models.FactorNames))
	for _, name := range models.FactorNames {
		t, ok := terms[name]
		if !ok {
			t = term{0, models.ProvenanceNone}
		}
		raw += t.points
		breakdown = append(breakdown, models.FactorScore{Name: name, Points: models.Round1(t.points), Source: t.source})
	}

	c := Composition{
		Profile:          profile,
		Breakdown:        breakdown,
		AdjustedBusyness: adjusted,
		CrowdLevel:       crowdLevel(adjusted),
		BestTime:         BestTimeOf(in.Summary.Hours),
		Rating:           rating,
	}

	hardStop := profile.Type == VenueOutdoor &&
		!f.Wifi.Present() && !f.Outlets.Present() && !f.Laptop.Present() &&
		in.Summary.TagOccurrences(seatingSignals...) == 0 &&
		in.Summary.SampleSize < 2

	switch {
	case hardStop:
		c.WorkScore = 0
	case raw <= 0:
		c.WorkScore = int(math.Round(profile.Floor))
	default:
		c.WorkScore = int(models.Clamp(math.Round(raw), 0, 100))
	}

	c.Highlights = highlights(in, c, hardStop, weather)
	c.UseCases = useCases(in.Vibe.Scores, c.WorkScore)

	confidence := 0.8*in.Reliability.Score + 0.15*models.Clamp01(in.Meta.TrustScore)
	if f.AnyInferred() {
		confidence += 0.05
	}
	c.Confidence = models.Round3(models.Clamp01(confidence))

	return c
}

func venueCategories(in Input) []string {
	cats := append([]string{}, in.Venue.Categories...)
	if in.Stored != nil {
		if in.Stored.Category != "" {
			cats = append(cats, in.Stored.Category)
		}
		cats = append(cats, in.Stored.Categories...)
	}
	for _, s := range in.External {
		cats = append(cats, s.Categories...)
	}
	return cats
}

func primaryContext(ctx []models.ContextSignal) *models.ContextSignal {
	if len(ctx) == 0 {
		return nil
	}
	return &ctx[0]
}

// adjustBusyness nudges observed crowding by the weather hint.
func adjustBusyness(busy *float64, weather *models.ContextSignal) *float64 {
	if busy == nil {
		return nil
	}
	v := *busy
	if weather != nil {
		conf := models.Clamp01(weather.Confidence)
		switch weather.CrowdImpact {
		case models.ImpactIncrease:
			v += 0.5 * conf
		case models.ImpactDecrease:
			v -= 0.3 * conf
		}
	}
	v = models.Clamp(v, 1, 5)
	return &v
}

func crowdLevel(busy *float64) models.CrowdLevel {
	switch {
	case busy == nil:
		return models.CrowdUnknown
	case *busy <= 2.2:
		return models.CrowdLow
	case *busy <= 3.5:
		return models.CrowdModerate
	default:
		return models.CrowdHigh
	}
}

// weightedRating is the review-weighted mean of external ratings, falling back to the stored rating.
func weightedRating(in Input) *float64 {
	sum, weight := 0.0, 0.0
	for _, s := range in.External {
		if s.Rating == nil {
			continue
		}
		w := 1.0
		if s.ReviewCount != nil && *s.ReviewCount > 0 {
			w = float64(*s.ReviewCount)
		}
		sum += models.Clamp(*s.Rating, 0, 5) * w
		weight += w
	}
	if weight > 0 {
		r := sum / weight
		return &r
	}
	if in.Stored != nil && in.Stored.Rating != nil {
		r := models.Clamp(*in.Stored.Rating, 0, 5)
		return &r
	}
	return nil
}

// BestTimeOf picks the quietest hour that has data. Average crowding decides when any hour
// carries it, otherwise the lowest report count; ties go to the earlier hour.
func BestTimeOf(hours map[int]signals.HourStat) models.BestTime {
	bestHour := -1
	bestValue := math.MaxFloat64
	useBusyness := false
	for _, h := range hours {
		if h.BusynessCount > 0 {
			useBusyness = true
			break
		}
	}

	for hour := 0; hour < 24; hour++ {
		h, ok := hours[hour]
		if !ok || h.Count == 0 {
			continue
		}
		var value float64
		if useBusyness {
			avg := h.AvgBusyness()
			if avg == nil {
				continue
			}
			value = *avg
		} else {
			value = float64(h.Count)
		}
		if value < bestValue {
			bestValue = value
			bestHour = hour
		}
	}

	switch {
	case bestHour < 0:
		return models.BestTimeUnknown
	case bestHour >= 5 && bestHour <= 11:
		return models.BestTimeMorning
	case bestHour >= 12 && bestHour <= 16:
		return models.BestTimeAfternoon
	case bestHour >= 17 && bestHour <= 21:
		return models.BestTimeEvening
	default:
		return models.BestTimeLate
	}
}

func highlights(in Input, c Composition, hardStop bool, weather *models.ContextSignal) []string {
	out := make([]string, 0, maxHighlights)
	add := func(h string) {
		if len(out) < maxHighlights {
			out = append(out, h)
		}
	}

	f := in.Factors
	if hardStop {
		add(HighlightNotSuitable)
	}
	if v := f.Wifi.Value; v != nil {
		switch {
		case *v >= 4:
			add("Fast, reliable Wi-Fi")
		case *v >= 3.5:
			add("Solid Wi-Fi")
		}
	}
	if v := f.Noise.Value; v != nil && *v <= 2.5 {
		add("Quiet atmosphere")
	}
	if v := f.Outlets.Value; v != nil && *v >= 4 {
		add("Plenty of outlets")
	}
	if c.CrowdLevel == models.CrowdLow {
		add("Usually easy to find a seat")
	}
	if v := f.Laptop.Value; v != nil && *v >= 0.7 {
		add("Laptop-friendly")
	}
	if in.Momentum.Trend == models.TrendImproving {
		add("Conditions improving lately")
	}
	if c.Rating != nil && *c.Rating >= 4.5 {
		add(fmt.Sprintf("Highly rated (%.1f★)", *c.Rating))
	}
	if weather != nil && weather.CrowdImpact == models.ImpactIncrease {
		add("Expect more people inside today")
	}
	return out
}

var vibeUseCases = map[models.Vibe]models.UseCase{
	models.VibeStudy:     models.UseCaseDeepWork,
	models.VibeDate:      models.UseCaseDateNight,
	models.VibeSocial:    models.UseCaseGroupHangout,
	models.VibeQuickStop: models.UseCaseQuickCoffee,
	models.VibeAesthetic: models.UseCasePhotoSpot,
}

func useCases(scores models.VibeScores, workScore int) []models.UseCase {
	type ranked struct {
		vibe  models.Vibe
		score float64
		order int
	}
	var candidates []ranked
	for i, v := range models.VibeOrder {
		if s := scores[v]; s >= useCaseThreshold {
			candidates = append(candidates, ranked{v, s, i})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	out := make([]models.UseCase, 0, maxUseCases)
	if workScore >= deepWorkScore {
		out = append(out, models.UseCaseDeepWork)
	}
	for _, c := range candidates {
		uc := vibeUseCases[c.vibe]
		if uc == models.UseCaseDeepWork && len(out) > 0 && out[0] == models.UseCaseDeepWork {
			continue
		}
		if len(out) == maxUseCases {
			break
		}
		out = append(out, uc)
	}
	return out
}
