package common

import (
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// ReviewPayload is the wire shape of a review shared by public and admin responses.
type ReviewPayload struct {
	ID           string         `json:"id"`
	SerialNumber *int64         `json:"serialNumber,omitempty"`
	Name         string         `json:"name"`
	Photo        string         `json:"photo,omitempty"`
	FaceID       string         `json:"faceId,omitempty"`
	Ratings      map[string]int `json:"ratings"`
	Overall      int            `json:"overall"`
	Comment      string         `json:"comment,omitempty"`
	Timestamp    int64          `json:"timestamp"`
}

// NewReviewPayload converts a domain review.
func NewReviewPayload(review domain.Review) ReviewPayload {
	ratings := make(map[string]int, len(review.Ratings))
	for k, v := range review.Ratings {
		ratings[k] = v
	}
	return ReviewPayload{
		ID:           review.ID,
		SerialNumber: review.SerialNumber,
		Name:         review.Name,
		Photo:        review.Photo,
		FaceID:       review.FaceID,
		Ratings:      ratings,
		Overall:      review.OverallRating(),
		Comment:      review.Comment,
		Timestamp:    review.Timestamp,
	}
}

// NewReviewPayloads converts a list, never returning nil.
func NewReviewPayloads(reviews []domain.Review) []ReviewPayload {
	out := make([]ReviewPayload, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, NewReviewPayload(review))
	}
	return out
}

// CategoryPayload is one rating category.
type CategoryPayload struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Question string `json:"question,omitempty"`
}

// BackgroundPayload is the station backdrop.
type BackgroundPayload struct {
	ImageURL string  `json:"imageUrl,omitempty"`
	Zoom     float64 `json:"zoom"`
	OffsetX  float64 `json:"offsetX"`
	OffsetY  float64 `json:"offsetY"`
	Blur     float64 `json:"blur"`
}

// StationPayload is the wire shape of a station configuration.
type StationPayload struct {
	LogoURL       string            `json:"logoUrl,omitempty"`
	Background    BackgroundPayload `json:"background"`
	Categories    []CategoryPayload `json:"categories"`
	FaceIDEnabled bool              `json:"faceIdEnabled"`
	Suggestions   []string          `json:"suggestions"`
}

// NewStationPayload converts a domain configuration.
func NewStationPayload(cfg domain.StationConfig) StationPayload {
	categories := make([]CategoryPayload, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories = append(categories, NewCategoryPayload(c))
	}
	suggestions := cfg.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return StationPayload{
		LogoURL: cfg.LogoURL,
		Background: BackgroundPayload{
			ImageURL: cfg.Background.ImageURL,
			Zoom:     cfg.Background.Zoom,
			OffsetX:  cfg.Background.OffsetX,
			OffsetY:  cfg.Background.OffsetY,
			Blur:     cfg.Background.Blur,
		},
		Categories:    categories,
		FaceIDEnabled: cfg.FaceIDEnabled,
		Suggestions:   suggestions,
	}
}

// NewCategoryPayload converts one category.
func NewCategoryPayload(c domain.RatingCategory) CategoryPayload {
	return CategoryPayload{ID: c.ID, Label: c.Label, Question: c.Question}
}

// DomainCategories converts the payload categories back to the domain.
func (p StationPayload) DomainCategories() []domain.RatingCategory {
	out := make([]domain.RatingCategory, 0, len(p.Categories))
	for _, c := range p.Categories {
		out = append(out, domain.RatingCategory{ID: c.ID, Label: c.Label, Question: c.Question})
	}
	return out
}

// DomainBackground converts the payload backdrop back to the domain.
func (p StationPayload) DomainBackground() domain.Background {
	return domain.Background{
		ImageURL: p.Background.ImageURL,
		Zoom:     p.Background.Zoom,
		OffsetX:  p.Background.OffsetX,
		OffsetY:  p.Background.OffsetY,
		Blur:     p.Background.Blur,
	}
}
