package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// RatingMin and RatingMax bound every committed rating value.
	RatingMin = 1
	RatingMax = 5
	// RatingUnset marks a category the visitor has not rated yet.
	RatingUnset = 0
	// OverallCategoryID is always present in a committed Ratings map.
	OverallCategoryID = "overall"
)

// Ratings maps a RatingCategory id to its score.
type Ratings map[string]int

// NewRatings returns a map with every category set to RatingUnset.
func NewRatings(categories []RatingCategory) Ratings {
	ratings := make(Ratings, len(categories))
	for _, category := range categories {
		ratings[category.ID] = RatingUnset
	}
	return ratings
}

// Clone copies the map so the caller can mutate it freely.
func (r Ratings) Clone() Ratings {
	out := make(Ratings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Overall returns the overall score or RatingUnset when missing.
func (r Ratings) Overall() int {
	return r[OverallCategoryID]
}

// Validate checks that every configured category carries a value in [RatingMin, RatingMax].
func (r Ratings) Validate(categories []RatingCategory) error {
	for _, category := range categories {
		value, ok := r[category.ID]
		if !ok {
			return fmt.Errorf("rating for %q is missing", category.ID)
		}
		if !ValidRating(value) {
			return fmt.Errorf("rating for %q must be between %d and %d: got %d", category.ID, RatingMin, RatingMax, value)
		}
	}
	if _, ok := r[OverallCategoryID]; !ok {
		return fmt.Errorf("rating for %q is missing", OverallCategoryID)
	}
	return nil
}

// Keys returns the category ids in sorted order.
func (r Ratings) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidRating reports whether v is a committed star value.
func ValidRating(v int) bool {
	return v >= RatingMin && v <= RatingMax
}

// RatingsFromLegacy converts a flat rating (older records stored a single number) into the keyed shape.
func RatingsFromLegacy(value float64) Ratings {
	return Ratings{OverallCategoryID: clampRating(int(math.Round(value)))}
}

// NormalizeRatings cleans a decoded map and guarantees an overall entry.
// Missing overall is derived from the rounded mean of the other categories;
// a row with no ratings at all stays RatingUnset so aggregates skip it.
func NormalizeRatings(raw map[string]float64) Ratings {
	ratings := make(Ratings, len(raw)+1)
	sum, count := 0, 0
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		score := clampRating(int(math.Round(value)))
		ratings[key] = score
		if key != OverallCategoryID {
			sum += score
			count++
		}
	}
	if _, ok := ratings[OverallCategoryID]; !ok {
		if count == 0 {
			ratings[OverallCategoryID] = RatingUnset
		} else {
			ratings[OverallCategoryID] = clampRating(int(math.Round(float64(sum) / float64(count))))
		}
	}
	return ratings
}

func clampRating(v int) int {
	if v < RatingMin {
		return RatingMin
	}
	if v > RatingMax {
		return RatingMax
	}
	return v
}

// Review is a committed visitor submission.
type Review struct {
	ID           string
	SerialNumber *int64
	Name         string
	Photo        string
	FaceID       string
	Ratings      Ratings
	Comment      string
	Timestamp    int64
}

// OverallRating returns the overall score used by the wall badge and aggregate.
func (r Review) OverallRating() int {
	if r.Ratings == nil {
		return 0
	}
	return r.Ratings.Overall()
}

// Draft is the wizard output handed to the submission orchestrator.
type Draft struct {
	Name    string
	Ratings Ratings
	Comment string
}

// ReviewPatch carries the admin-editable fields. Nil means unchanged.
type ReviewPatch struct {
	Name    *string
	Comment *string
	Ratings Ratings
}

// Empty reports whether the patch changes nothing.
func (p ReviewPatch) Empty() bool {
	return p.Name == nil && p.Comment == nil && len(p.Ratings) == 0
}

// SortNewestFirst orders reviews by timestamp descending, breaking ties by serial number.
func SortNewestFirst(reviews []Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		if reviews[i].Timestamp == reviews[j].Timestamp {
			return serialOf(reviews[i]) > serialOf(reviews[j])
		}
		return reviews[i].Timestamp > reviews[j].Timestamp
	})
}

func serialOf(r Review) int64 {
	if r.SerialNumber == nil {
		return 0
	}
	return *r.SerialNumber
}
