package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

type MockReviewGateway struct {
	mock.Mock
}

func (m *MockReviewGateway) ListReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, limit)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

func (m *MockReviewGateway) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	args := m.Called(ctx, review)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

func (m *MockReviewGateway) UpdateReview(ctx context.Context, id string, patch domain.ReviewPatch) (domain.Review, error) {
	args := m.Called(ctx, id, patch)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

func (m *MockReviewGateway) DeleteReview(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockReviewGateway) DeleteAllReviews(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewGateway) FindReview(ctx context.Context, id string) (domain.Review, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

func (m *MockReviewGateway) FindBySerial(ctx context.Context, serial int64) (domain.Review, error) {
	args := m.Called(ctx, serial)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

type MockSettingsGateway struct {
	mock.Mock
}

func (m *MockSettingsGateway) GetSettings(ctx context.Context) (domain.StationConfig, bool, error) {
	args := m.Called(ctx)
	cfg, _ := args.Get(0).(domain.StationConfig)
	return cfg, args.Bool(1), args.Error(2)
}

func (m *MockSettingsGateway) UpsertSettings(ctx context.Context, cfg domain.StationConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

type recordingFeed struct {
	upserts []domain.Review
	removed []string
	cleared int
}

func (f *recordingFeed) Upsert(review domain.Review) { f.upserts = append(f.upserts, review) }
func (f *recordingFeed) Remove(id string)             { f.removed = append(f.removed, id) }
func (f *recordingFeed) Clear()                       { f.cleared++ }
