package scoring

import (
	"strings"
	"unicode"

	"place-intelligence/internal/models"
)

type VenueType string

const (
	VenueWork      VenueType = "work"
	VenueMixed     VenueType = "mixed"
	VenueNightlife VenueType = "nightlife"
	VenueOutdoor   VenueType = "outdoor"
	VenueUnknown   VenueType = "unknown"
)

// TypeProfile carries the per-type constants the composer starts from.
type TypeProfile struct {
	Type       VenueType         `json:"type"`
	Baseline   float64           `json:"baseline"`
	StudyBoost float64           `json:"studyBoost"`
	Floor      float64           `json:"floor"`
	Source     models.Provenance `json:"source"`
}

var typeKeywords = []struct {
	venueType VenueType
	keywords  []string
}{
	// Order is the classification priority.
	{VenueWork, []string{"coworking", "library", "cafe", "café", "coffee", "tea", "bookstore", "study"}},
	{VenueNightlife, []string{"bar", "pub", "night_club", "nightclub", "brewery", "lounge"}},
	{VenueMixed, []string{"restaurant", "bakery", "hotel", "lodging", "food", "deli", "diner"}},
	{VenueOutdoor, []string{"park", "beach", "trail", "campground", "playground", "garden", "stadium"}},
}

var profiles = map[VenueType]TypeProfile{
	VenueWork:      {Type: VenueWork, Baseline: 30, StudyBoost: 8, Floor: 15},
	VenueMixed:     {Type: VenueMixed, Baseline: 18, StudyBoost: 0, Floor: 10},
	VenueNightlife: {Type: VenueNightlife, Baseline: 10, StudyBoost: 0, Floor: 5},
	VenueOutdoor:   {Type: VenueOutdoor, Baseline: 0, StudyBoost: 0, Floor: 3},
	VenueUnknown:   {Type: VenueUnknown, Baseline: 12, StudyBoost: 0, Floor: 8},
}

// dedicatedStudyBoost applies to libraries and coworking spaces.
const dedicatedStudyBoost = 12

// ClassifyVenue picks the venue type from categories first, then the name.
func ClassifyVenue(name string, categories []string, isOutdoor bool) TypeProfile {
	catTokens := tokenSet(categories...)
	nameTokens := tokenSet(name)

	for _, tk := range typeKeywords {
		source := models.ProvenanceNone
		switch {
		case matchesAny(catTokens, tk.keywords):
			source = models.ProvenanceAPI
		case matchesAny(nameTokens, tk.keywords):
			source = models.ProvenanceInferred
		default:
			continue
		}

		p := profiles[tk.venueType]
		p.Source = source
		if tk.venueType == VenueWork &&
			(matchesAny(catTokens, []string{"library", "coworking"}) || matchesAny(nameTokens, []string{"library", "coworking"})) {
			p.StudyBoost = dedicatedStudyBoost
		}
		return p
	}

	if isOutdoor {
		p := profiles[VenueOutdoor]
		p.Source = models.ProvenanceAPI
		return p
	}

	p := profiles[VenueUnknown]
	p.Source = models.ProvenanceNone
	return p
}

func tokenSet(values ...string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, v := range values {
		v = strings.ToLower(v)
		words := strings.FieldsFunc(v, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		for _, w := range words {
			set[w] = struct{}{}
			if strings.Contains(w, "_") {
				for _, part := range strings.Split(w, "_") {
					if part != "" {
						set[part] = struct{}{}
					}
				}
			}
		}
	}
	return set
}

func matchesAny(tokens map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if _, ok := tokens[kw]; ok {
			return true
		}
		if _, ok := tokens[kw+"s"]; ok {
			return true
		}
	}
	return false
}
