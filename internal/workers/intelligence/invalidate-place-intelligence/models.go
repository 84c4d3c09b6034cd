// internal/workers/intelligence/invalidate-place-intelligence/models.go
package invalidateplaceintelligence

// Input with an empty VenueID clears every venue.
type Input struct {
	VenueID string `json:"venueId"`
}

const (
	ScopeVenue = "venue"
	ScopeAll   = "all"
)

type Output struct {
	Invalidated int    `json:"invalidated"`
	Scope       string `json:"scope"`
}
