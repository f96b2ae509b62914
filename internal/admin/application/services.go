package application

import (
	"context"
	"errors"
	"io"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

var (
	// ErrInvalidAccessCode is returned when a station code does not match.
	ErrInvalidAccessCode = errors.New("invalid access code")
	// ErrAccessNotConfigured means no codes or signing secret were provided.
	ErrAccessNotConfigured = errors.New("admin access is not configured")
	// ErrInvalidToken covers malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrValidation wraps every rejected admin edit.
	ErrValidation = errors.New("validation failed")
)

// DeleteAllPhrase must be typed verbatim to wipe every review.
const DeleteAllPhrase = "DELETE ALL"

// FeedSink receives admin edits so mounted walls update without waiting for a poll.
type FeedSink interface {
	Upsert(review domain.Review)
	Remove(id string)
	Clear()
}

// SettingsSink receives saved station settings.
type SettingsSink interface {
	Replace(cfg domain.StationConfig) domain.StationConfig
}

// AccessService issues and verifies admin tokens for station access codes.
type AccessService interface {
	Login(ctx context.Context, code string) (string, error)
	Verify(token string) (*AccessClaims, error)
}

// ReviewService describes admin review use-cases.
type ReviewService interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Review, error)
	Detail(ctx context.Context, id string) (domain.Review, error)
	Update(ctx context.Context, id string, cmd UpdateReviewCommand) (domain.Review, error)
	Delete(ctx context.Context, id string, confirmed bool) error
	DeleteAll(ctx context.Context, phrase string) (int64, error)
	Export(ctx context.Context, categories []domain.RatingCategory, w io.Writer) error
}

// SettingsService describes station settings administration.
type SettingsService interface {
	Get(ctx context.Context) (domain.StationConfig, error)
	Update(ctx context.Context, cmd UpdateSettingsCommand) (domain.StationConfig, error)
}

// UpdateReviewCommand carries the editable review fields. Nil leaves a field unchanged.
type UpdateReviewCommand struct {
	Name    *string
	Comment *string
	Ratings map[string]int
}

// UpdateSettingsCommand replaces the station configuration.
type UpdateSettingsCommand struct {
	LogoURL       string
	Background    domain.Background
	Categories    []domain.RatingCategory
	FaceIDEnabled bool
	Suggestions   []string
}
