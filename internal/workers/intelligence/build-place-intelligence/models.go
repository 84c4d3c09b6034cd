// internal/workers/intelligence/build-place-intelligence/models.go
package buildplaceintelligence

import "place-intelligence/internal/models"

// Input mirrors the job variables published in the activity registry.
type Input struct {
	VenueID    string                       `json:"venueId"`
	Name       string                       `json:"name"`
	Lat        float64                      `json:"lat"`
	Lng        float64                      `json:"lng"`
	Categories []string                     `json:"categories,omitempty"`
	OpenNow    *bool                        `json:"openNow,omitempty"`
	Inferred   *models.InferredReviewSignal `json:"inferred,omitempty"`
	Stored     *models.StoredIntel          `json:"stored,omitempty"`
	UserID     string                       `json:"userId,omitempty"`
}

func (in *Input) Venue() models.Venue {
	return models.Venue{
		ID:         in.VenueID,
		Name:       in.Name,
		Lat:        in.Lat,
		Lng:        in.Lng,
		Categories: in.Categories,
		OpenNow:    in.OpenNow,
	}
}

type Output struct {
	PlaceIntelligence *models.PlaceIntelligence `json:"placeIntelligence"`
	WorkScore         int                       `json:"workScore"`
	Confidence        float64                   `json:"confidence"`
	ReportCount       int                       `json:"reportCount"`
}
