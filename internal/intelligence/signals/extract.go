// Package signals aggregates visit reports and resolves each work factor to a value plus provenance.
package signals

import (
	"sort"
	"strings"
	"time"

	"place-intelligence/internal/models"
)

const maxPhotoTags = 4

// HourStat is one bucket of the hour-of-day histogram.
type HourStat struct {
	Count         int     `json:"count"`
	BusynessSum   float64 `json:"busynessSum"`
	BusynessCount int     `json:"busynessCount"`
}

// AvgBusyness is nil when no report in the hour carried a crowd rating.
func (h HourStat) AvgBusyness() *float64 {
	if h.BusynessCount == 0 {
		return nil
	}
	v := h.BusynessSum / float64(h.BusynessCount)
	return &v
}

// Summary is the per-metric aggregate of a venue's reports.
type Summary struct {
	SampleSize int

	Wifi         *float64
	Noise        *float64
	Busyness     *float64
	Outlets      *float64
	LaptopRate   *float64
	DrinkQuality *float64
	DrinkPrice   *float64

	WifiValues     []float64
	NoiseValues    []float64
	BusynessValues []float64
	OutletValues   []float64
	LaptopVotes    []bool

	AmbianceCounts map[string]int
	IntentCounts   map[string]int
	PhotoTagCounts map[string]int // top 4 only

	DominantAmbiance string
	TopPhotoTags     []string

	Hours map[int]HourStat

	allPhotoTags map[string]int
}

// Extract aggregates reports. Hours are bucketed in loc (UTC when nil).
func Extract(reports []models.VisitReport, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	s := Summary{
		SampleSize:     len(reports),
		AmbianceCounts: map[string]int{},
		IntentCounts:   map[string]int{},
		PhotoTagCounts: map[string]int{},
		Hours:          map[int]HourStat{},
		allPhotoTags:   map[string]int{},
	}

	var qualities, prices []float64
	for _, r := range reports {
		if v := r.WifiValue(); v != nil {
			s.WifiValues = append(s.WifiValues, *v)
		}
		if v := r.NoiseValue(); v != nil {
			s.NoiseValues = append(s.NoiseValues, *v)
		}
		busy := r.BusynessValue()
		if busy != nil {
			s.BusynessValues = append(s.BusynessValues, *busy)
		}
		if v := r.OutletsValue(); v != nil {
			s.OutletValues = append(s.OutletValues, *v)
		}
		if r.LaptopFriendly != nil {
			s.LaptopVotes = append(s.LaptopVotes, *r.LaptopFriendly)
		}
		if v := r.DrinkQualityValue(); v != nil {
			qualities = append(qualities, *v)
		}
		if v := r.DrinkPriceValue(); v != nil {
			prices = append(prices, *v)
		}

		if tag := normalizeTag(r.Ambiance); tag != "" {
			s.AmbianceCounts[tag]++
		}
		for _, intent := range r.Intents {
			if tag := normalizeTag(intent); tag != "" {
				s.IntentCounts[tag]++
			}
		}
		for _, photo := range r.PhotoTags {
			if tag := normalizeTag(photo); tag != "" {
				s.allPhotoTags[tag]++
			}
		}

		hour := r.CreatedAt.In(loc).Hour()
		stat := s.Hours[hour]
		stat.Count++
		if busy != nil {
			stat.BusynessSum += *busy
			stat.BusynessCount++
		}
		s.Hours[hour] = stat
	}

	s.Wifi = Mean(s.WifiValues)
	s.Noise = Mean(s.NoiseValues)
	s.Busyness = Mean(s.BusynessValues)
	s.Outlets = Mean(s.OutletValues)
	s.LaptopRate = Rate(s.LaptopVotes)
	s.DrinkQuality = Mean(qualities)
	s.DrinkPrice = Mean(prices)

	s.DominantAmbiance = topKeys(s.AmbianceCounts, 1).first()
	s.TopPhotoTags = topKeys(s.allPhotoTags, maxPhotoTags)
	for _, tag := range s.TopPhotoTags {
		s.PhotoTagCounts[tag] = s.allPhotoTags[tag]
	}

	return s
}

// TopIntents returns up to n intent tags by count, ties alphabetical.
func (s Summary) TopIntents(n int) []string {
	return topKeys(s.IntentCounts, n)
}

// HasIntent reports whether any intent tag contains one of the fragments.
func (s Summary) HasIntent(fragments ...string) bool {
	return countMatching(s.IntentCounts, fragments) > 0
}

// TagOccurrences counts intent, ambiance and photo tag occurrences that contain any fragment.
// Each occurrence is counted once.
func (s Summary) TagOccurrences(fragments ...string) int {
	return countMatching(s.IntentCounts, fragments) +
		countMatching(s.AmbianceCounts, fragments) +
		countMatching(s.allPhotoTags, fragments)
}

// ObservationCount is the number of non-null values across wifi, busyness, noise and laptop.
func (s Summary) ObservationCount() int {
	return len(s.WifiValues) + len(s.BusynessValues) + len(s.NoiseValues) + len(s.LaptopVotes)
}

func countMatching(counts map[string]int, fragments []string) int {
	n := 0
	for tag, c := range counts {
		for _, f := range fragments {
			if strings.Contains(tag, f) {
				n += c
				break
			}
		}
	}
	return n
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

type keyList []string

func (k keyList) first() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

func topKeys(counts map[string]int, n int) keyList {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Mean is nil for an empty slice.
func Mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// Rate is the share of true votes, nil for no votes.
func Rate(votes []bool) *float64 {
	if len(votes) == 0 {
		return nil
	}
	yes := 0
	for _, v := range votes {
		if v {
			yes++
		}
	}
	r := float64(yes) / float64(len(votes))
	return &r
}
