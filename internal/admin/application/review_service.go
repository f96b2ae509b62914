package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// DefaultSearchLimit is used when the admin lists without a query.
const DefaultSearchLimit = 50

type reviewService struct {
	repo kioskapp.ReviewGateway
	feed FeedSink
}

// NewReviewService wires the admin review use-cases. feed may be nil.
func NewReviewService(repo kioskapp.ReviewGateway, feed FeedSink) ReviewService {
	return &reviewService{repo: repo, feed: feed}
}

// Search finds reviews by serial number or id. An empty query lists the newest reviews.
func (s *reviewService) Search(ctx context.Context, query string, limit int) ([]domain.Review, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if query == "" {
		return s.repo.ListReviews(ctx, limit)
	}

	if serial, err := strconv.ParseInt(strings.TrimPrefix(query, "#"), 10, 64); err == nil {
		review, err := s.repo.FindBySerial(ctx, serial)
		switch {
		case err == nil:
			return []domain.Review{review}, nil
		case !errors.Is(err, kioskapp.ErrReviewNotFound):
			return nil, err
		}
	}

	review, err := s.repo.FindReview(ctx, query)
	if errors.Is(err, kioskapp.ErrReviewNotFound) {
		return []domain.Review{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []domain.Review{review}, nil
}

func (s *reviewService) Detail(ctx context.Context, id string) (domain.Review, error) {
	return s.repo.FindReview(ctx, strings.TrimSpace(id))
}

// Update validates the edit and merges the given ratings into the stored map.
func (s *reviewService) Update(ctx context.Context, id string, cmd UpdateReviewCommand) (domain.Review, error) {
	id = strings.TrimSpace(id)
	existing, err := s.repo.FindReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}

	patch, err := buildReviewPatch(existing, cmd)
	if err != nil {
		return domain.Review{}, err
	}
	if patch.Empty() {
		return existing, nil
	}

	updated, err := s.repo.UpdateReview(ctx, id, patch)
	if err != nil {
		return domain.Review{}, err
	}
	if s.feed != nil {
		s.feed.Upsert(updated)
	}
	return updated, nil
}

func (s *reviewService) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteReview(ctx, id); err != nil {
		return err
	}
	if s.feed != nil {
		s.feed.Remove(id)
	}
	return nil
}

func (s *reviewService) DeleteAll(ctx context.Context, phrase string) (int64, error) {
	if strings.TrimSpace(phrase) != DeleteAllPhrase {
		return 0, ErrConfirmationRequired
	}
	deleted, err := s.repo.DeleteAllReviews(ctx)
	if err != nil {
		return 0, err
	}
	if s.feed != nil {
		s.feed.Clear()
	}
	return deleted, nil
}

func buildReviewPatch(existing domain.Review, cmd UpdateReviewCommand) (domain.ReviewPatch, error) {
	var patch domain.ReviewPatch
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return patch, fmt.Errorf("%w: name is required", ErrValidation)
		}
		patch.Name = &name
	}
	if cmd.Comment != nil {
		comment := strings.TrimSpace(*cmd.Comment)
		patch.Comment = &comment
	}
	if len(cmd.Ratings) > 0 {
		merged := existing.Ratings.Clone()
		for key, value := range cmd.Ratings {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if !domain.ValidRating(value) {
				return patch, fmt.Errorf("%w: rating for %q must be between %d and %d", ErrValidation, key, domain.RatingMin, domain.RatingMax)
			}
			merged[key] = value
		}
		if _, ok := merged[domain.OverallCategoryID]; !ok {
			return patch, fmt.Errorf("%w: overall rating is required", ErrValidation)
		}
		patch.Ratings = merged
	}
	return patch, nil
}
