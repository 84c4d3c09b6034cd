package cache

import (
	"fmt"
	"strings"
)

const (
	ExternalPrefix = "ext:"
	ContextPrefix  = "ctx:"
)

// VenueSegment is the identity part of every venue-scoped key: the id, else the lowercased name.
func VenueSegment(id, name string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func ResultKey(id, name string, lat, lng float64) string {
	return fmt.Sprintf("%s:%.4f:%.4f", VenueSegment(id, name), lat, lng)
}

func ExternalKey(id, name string, lat, lng float64) string {
	return fmt.Sprintf("%s%s:%.3f:%.3f", ExternalPrefix, VenueSegment(id, name), lat, lng)
}

func ContextKey(lat, lng float64) string {
	return fmt.Sprintf("%s%.2f:%.2f", ContextPrefix, lat, lng)
}

// ResultVenue recovers the venue segment from a result key. Names may contain ':',
// so the two coordinate segments are trimmed from the right.
func ResultVenue(key string) string {
	return trimCoordinates(key)
}

// ExternalVenue recovers the venue segment from an external key. ok is false for any
// key outside the external space.
func ExternalVenue(key string) (venue string, ok bool) {
	if !strings.HasPrefix(key, ExternalPrefix) {
		return "", false
	}
	return trimCoordinates(strings.TrimPrefix(key, ExternalPrefix)), true
}

func trimCoordinates(key string) string {
	for i := 0; i < 2; i++ {
		idx := strings.LastIndex(key, ":")
		if idx < 0 {
			return key
		}
		key = key[:idx]
	}
	return key
}
