package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

func storedReview() domain.Review {
	serial := int64(12)
	return domain.Review{
		ID:           "rev-12",
		SerialNumber: &serial,
		Name:         "Omar",
		Comment:      "great",
		Ratings:      domain.Ratings{"food": 3, domain.OverallCategoryID: 4},
		Timestamp:    1_700_000_000_000,
	}
}

func TestSearchBySerialNumber(t *testing.T) {
	repo := &MockReviewGateway{}
	repo.On("FindBySerial", mock.Anything, int64(12)).Return(storedReview(), nil).Once()

	reviews, err := NewReviewService(repo, nil).Search(context.Background(), "#12", 0)

	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "rev-12", reviews[0].ID)
	repo.AssertExpectations(t)
}

func TestSearchFallsBackToID(t *testing.T) {
	repo := &MockReviewGateway{}
	repo.On("FindBySerial", mock.Anything, int64(42)).Return(domain.Review{}, kioskapp.ErrReviewNotFound).Once()
	repo.On("FindReview", mock.Anything, "42").Return(domain.Review{}, kioskapp.ErrReviewNotFound).Once()
	repo.On("FindReview", mock.Anything, "rev-12").Return(storedReview(), nil).Once()

	service := NewReviewService(repo, nil)
	reviews, err := service.Search(context.Background(), "42", 0)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	reviews, err = service.Search(context.Background(), " rev-12 ", 0)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	repo.AssertExpectations(t)
}

func TestSearchWithoutQueryLists(t *testing.T) {
	repo := &MockReviewGateway{}
	repo.On("ListReviews", mock.Anything, DefaultSearchLimit).Return([]domain.Review{storedReview()}, nil).Once()

	reviews, err := NewReviewService(repo, nil).Search(context.Background(), "", 0)

	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestUpdateMergesRatingsAndRefreshesFeed(t *testing.T) {
	repo := &MockReviewGateway{}
	feed := &recordingFeed{}
	repo.On("FindReview", mock.Anything, "rev-12").Return(storedReview(), nil)
	repo.On("UpdateReview", mock.Anything, "rev-12", mock.MatchedBy(func(p domain.ReviewPatch) bool {
		return p.Name != nil && *p.Name == "Omar K" && p.Comment == nil &&
			p.Ratings["food"] == 5 && p.Ratings[domain.OverallCategoryID] == 4
	})).Return(domain.Review{ID: "rev-12", Name: "Omar K"}, nil).Once()

	name := " Omar K "
	updated, err := NewReviewService(repo, feed).Update(context.Background(), "rev-12", UpdateReviewCommand{
		Name:    &name,
		Ratings: map[string]int{"food": 5},
	})

	require.NoError(t, err)
	assert.Equal(t, "Omar K", updated.Name)
	require.Len(t, feed.upserts, 1)
	repo.AssertExpectations(t)
}

func TestUpdateValidation(t *testing.T) {
	repo := &MockReviewGateway{}
	repo.On("FindReview", mock.Anything, "rev-12").Return(storedReview(), nil)
	service := NewReviewService(repo, nil)

	blank := "  "
	_, err := service.Update(context.Background(), "rev-12", UpdateReviewCommand{Name: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.Update(context.Background(), "rev-12", UpdateReviewCommand{Ratings: map[string]int{"food": 6}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.Update(context.Background(), "rev-12", UpdateReviewCommand{Ratings: map[string]int{domain.OverallCategoryID: 0}})
	assert.ErrorIs(t, err, ErrValidation)

	repo.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateWithNothingChangedSkipsWrite(t *testing.T) {
	repo := &MockReviewGateway{}
	repo.On("FindReview", mock.Anything, "rev-12").Return(storedReview(), nil)

	review, err := NewReviewService(repo, nil).Update(context.Background(), "rev-12", UpdateReviewCommand{})

	require.NoError(t, err)
	assert.Equal(t, "Omar", review.Name)
	repo.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	repo := &MockReviewGateway{}
	feed := &recordingFeed{}
	service := NewReviewService(repo, feed)

	assert.ErrorIs(t, service.Delete(context.Background(), "rev-12", false), ErrConfirmationRequired)
	repo.AssertNotCalled(t, "DeleteReview", mock.Anything, mock.Anything)

	repo.On("DeleteReview", mock.Anything, "rev-12").Return(nil).Once()
	require.NoError(t, service.Delete(context.Background(), "rev-12", true))
	assert.Equal(t, []string{"rev-12"}, feed.removed)
}

func TestDeleteAllRequiresPhrase(t *testing.T) {
	repo := &MockReviewGateway{}
	feed := &recordingFeed{}
	service := NewReviewService(repo, feed)

	_, err := service.DeleteAll(context.Background(), "delete all")
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	repo.On("DeleteAllReviews", mock.Anything).Return(int64(7), nil).Once()
	deleted, err := service.DeleteAll(context.Background(), DeleteAllPhrase)
	require.NoError(t, err)
	assert.EqualValues(t, 7, deleted)
	assert.Equal(t, 1, feed.cleared)
}

func TestDeleteFailureLeavesFeed(t *testing.T) {
	repo := &MockReviewGateway{}
	feed := &recordingFeed{}
	repo.On("DeleteReview", mock.Anything, "rev-12").Return(errors.New("offline")).Once()

	err := NewReviewService(repo, feed).Delete(context.Background(), "rev-12", true)

	assert.EqualError(t, err, "offline")
	assert.Empty(t, feed.removed)
}
