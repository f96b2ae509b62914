package application

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

var (
	// ErrUnknownColumn is returned by a ReviewGateway when the backing schema lacks a written field.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrReviewNotFound is returned when no review matches the lookup.
	ErrReviewNotFound = errors.New("review not found")
	// ErrNotConfigured marks a gateway whose backend credentials are absent.
	ErrNotConfigured = errors.New("backend not configured")
	// ErrBlobNotFound is returned by BlobStore.OpenBlob for unknown keys.
	ErrBlobNotFound = errors.New("blob not found")
)

// ReviewGateway は reviews コレクションへの行アクセスを提供するポート。
type ReviewGateway interface {
	ListReviews(ctx context.Context, limit int) ([]domain.Review, error)
	InsertReview(ctx context.Context, review domain.Review) (domain.Review, error)
	UpdateReview(ctx context.Context, id string, patch domain.ReviewPatch) (domain.Review, error)
	DeleteReview(ctx context.Context, id string) error
	DeleteAllReviews(ctx context.Context) (int64, error)
	FindReview(ctx context.Context, id string) (domain.Review, error)
	FindBySerial(ctx context.Context, serial int64) (domain.Review, error)
}

// SettingsGateway reads and writes the single station settings row.
type SettingsGateway interface {
	GetSettings(ctx context.Context) (domain.StationConfig, bool, error)
	UpsertSettings(ctx context.Context, cfg domain.StationConfig) error
}

// Blob is an opened blob with its metadata.
type Blob struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// BlobStore keeps photo, logo and background assets.
type BlobStore interface {
	UploadBlob(ctx context.Context, bucket, filename, contentType string, data []byte) (string, error)
	OpenBlob(ctx context.Context, bucket, filename string) (*Blob, error)
}

// MediaURL builds the public URL of a stored blob: <base>/media/<bucket>/<filename>.
func MediaURL(baseURL, bucket, filename string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/media/" + url.PathEscape(bucket) + "/" + url.PathEscape(filename)
}

// InsertBroker fans committed reviews out to every instance.
type InsertBroker interface {
	PublishInsert(ctx context.Context, review domain.Review) error
	SubscribeInserts(ctx context.Context, fn func(domain.Review)) (func(), error)
}

// FaceGateway is the external face recognition service.
type FaceGateway interface {
	UploadImage(ctx context.Context, data []byte, filename string) error
	TriggerReindex(ctx context.Context) error
	ListRecentItems(ctx context.Context, count int) ([]domain.FaceItem, error)
	QueryByClusterID(ctx context.Context, clusterID string, count int) ([]domain.FaceItem, error)
}

// ReviewNotifier announces a committed review outside the kiosk.
type ReviewNotifier interface {
	NotifyReview(ctx context.Context, review domain.Review) error
}

// Backend bundles the storage ports built from configuration.
type Backend struct {
	Reviews  ReviewGateway
	Settings SettingsGateway
	Blobs    BlobStore
	Close    func(ctx context.Context) error
}

// UnconfiguredBackend returns a Backend whose every call fails with ErrNotConfigured.
func UnconfiguredBackend() Backend {
	g := unconfiguredGateway{}
	return Backend{
		Reviews:  g,
		Settings: g,
		Blobs:    g,
		Close:    func(context.Context) error { return nil },
	}
}

type unconfiguredGateway struct{}

func (unconfiguredGateway) ListReviews(context.Context, int) ([]domain.Review, error) {
	return nil, ErrNotConfigured
}

func (unconfiguredGateway) InsertReview(context.Context, domain.Review) (domain.Review, error) {
	return domain.Review{}, ErrNotConfigured
}

func (unconfiguredGateway) UpdateReview(context.Context, string, domain.ReviewPatch) (domain.Review, error) {
	return domain.Review{}, ErrNotConfigured
}

func (unconfiguredGateway) DeleteReview(context.Context, string) error { return ErrNotConfigured }

func (unconfiguredGateway) DeleteAllReviews(context.Context) (int64, error) {
	return 0, ErrNotConfigured
}

func (unconfiguredGateway) FindReview(context.Context, string) (domain.Review, error) {
	return domain.Review{}, ErrNotConfigured
}

func (unconfiguredGateway) FindBySerial(context.Context, int64) (domain.Review, error) {
	return domain.Review{}, ErrNotConfigured
}

func (unconfiguredGateway) GetSettings(context.Context) (domain.StationConfig, bool, error) {
	return domain.StationConfig{}, false, ErrNotConfigured
}

func (unconfiguredGateway) UpsertSettings(context.Context, domain.StationConfig) error {
	return ErrNotConfigured
}

func (unconfiguredGateway) UploadBlob(context.Context, string, string, string, []byte) (string, error) {
	return "", ErrNotConfigured
}

func (unconfiguredGateway) OpenBlob(context.Context, string, string) (*Blob, error) {
	return nil, ErrNotConfigured
}
