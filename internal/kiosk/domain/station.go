package domain

import (
	"strings"
)

// RatingCategory is one star-rating step of the wizard.
type RatingCategory struct {
	ID       string
	Label    string
	Question string
}

// Background describes the station backdrop placement.
type Background struct {
	ImageURL string
	Zoom     float64
	OffsetX  float64
	OffsetY  float64
	Blur     float64
}

// StationConfig is the per-station configuration read at startup and refreshed periodically.
type StationConfig struct {
	LogoURL       string
	Background    Background
	Categories    []RatingCategory
	FaceIDEnabled bool
	Suggestions   []string
}

// DefaultCategories mirrors the categories used on the first event deployment.
var DefaultCategories = []RatingCategory{
	{ID: "books", Label: "Book Availability", Question: "How was the book selection and availability?"},
	{ID: "venue", Label: "Venue Arrangement", Question: "What did you think of the venue layout?"},
	{ID: "collection", Label: "Ease of Collection", Question: "How easy was it to collect your books?"},
	{ID: "authors", Label: "Author Sessions", Question: "Did you enjoy the author introductions?"},
	{ID: "food", Label: "Food Stalls", Question: "How were the food and refreshments?"},
	{ID: "artibhition", Label: "Artibhition", Question: "What is your verdict on the Artibhition program?"},
	{ID: "coffee", Label: "Book a Coffee", Question: "Did you enjoy the Book a Coffee experience?"},
	{ID: OverallCategoryID, Label: "Overall Experience", Question: "Finally, rate your overall experience"},
}

// DefaultSuggestions are the quick-suggestion chips offered on the comment step.
var DefaultSuggestions = []string{
	"Amazing atmosphere!",
	"Great book selection.",
	"Will come back next year.",
	"Loved the author sessions.",
}

// DefaultStationConfig returns the configuration used when the store holds no settings row.
func DefaultStationConfig() StationConfig {
	return StationConfig{
		Categories:    append([]RatingCategory(nil), DefaultCategories...),
		FaceIDEnabled: true,
		Background:    Background{Zoom: 1},
		Suggestions:   append([]string(nil), DefaultSuggestions...),
	}
}

// Normalize trims values, drops duplicate or blank category ids and guarantees an overall category.
func (c StationConfig) Normalize() StationConfig {
	out := c
	out.LogoURL = strings.TrimSpace(c.LogoURL)
	out.Background.ImageURL = strings.TrimSpace(c.Background.ImageURL)
	if out.Background.Zoom <= 0 {
		out.Background.Zoom = 1
	}
	if out.Background.Blur < 0 {
		out.Background.Blur = 0
	}

	categories := make([]RatingCategory, 0, len(c.Categories)+1)
	seen := make(map[string]struct{}, len(c.Categories))
	var overall *RatingCategory
	for _, category := range c.Categories {
		category.ID = strings.TrimSpace(category.ID)
		category.Label = strings.TrimSpace(category.Label)
		category.Question = strings.TrimSpace(category.Question)
		if category.ID == "" {
			continue
		}
		if _, ok := seen[category.ID]; ok {
			continue
		}
		seen[category.ID] = struct{}{}
		if category.Label == "" {
			category.Label = category.ID
		}
		if category.ID == OverallCategoryID {
			cat := category
			overall = &cat
			continue
		}
		categories = append(categories, category)
	}
	if len(categories) == 0 && overall == nil {
		categories = append(categories, DefaultCategories[:len(DefaultCategories)-1]...)
	}
	if overall == nil {
		overall = &DefaultCategories[len(DefaultCategories)-1]
	}
	// overall is always the final rating step
	out.Categories = append(categories, *overall)

	suggestions := make([]string, 0, len(c.Suggestions))
	for _, s := range c.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	out.Suggestions = suggestions
	return out
}

// CategoryIDs returns the ids in wizard order.
func (c StationConfig) CategoryIDs() []string {
	ids := make([]string, 0, len(c.Categories))
	for _, category := range c.Categories {
		ids = append(ids, category.ID)
	}
	return ids
}
