package application

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

type mockReviewGateway struct {
	mock.Mock
}

func (m *mockReviewGateway) ListReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, limit)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

func (m *mockReviewGateway) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	args := m.Called(ctx, review)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

func (m *mockReviewGateway) UpdateReview(ctx context.Context, id string, patch domain.ReviewPatch) (domain.Review, error) {
	args := m.Called(ctx, id, patch)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

func (m *mockReviewGateway) DeleteReview(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockReviewGateway) DeleteAllReviews(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockReviewGateway) FindReview(ctx context.Context, id string) (domain.Review, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

func (m *mockReviewGateway) FindBySerial(ctx context.Context, serial int64) (domain.Review, error) {
	args := m.Called(ctx, serial)
	out, _ := args.Get(0).(domain.Review)
	return out, args.Error(1)
}

// memoryReviews assigns ids and serials like a real store.
type memoryReviews struct {
	mu       sync.Mutex
	rows     []domain.Review
	inserts  []domain.Review
	rejectFn func(domain.Review) error
	listErr  error
}

func (m *memoryReviews) ListReviews(_ context.Context, limit int) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]domain.Review(nil), m.rows...)
	domain.SortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryReviews) InsertReview(_ context.Context, review domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts = append(m.inserts, review)
	if m.rejectFn != nil {
		if err := m.rejectFn(review); err != nil {
			return domain.Review{}, err
		}
	}
	serial := int64(len(m.rows) + 1)
	review.ID = fmt.Sprintf("rev-%d", serial)
	review.SerialNumber = &serial
	m.rows = append(m.rows, review)
	return review, nil
}

func (m *memoryReviews) UpdateReview(context.Context, string, domain.ReviewPatch) (domain.Review, error) {
	return domain.Review{}, nil
}

func (m *memoryReviews) DeleteReview(context.Context, string) error { return nil }

func (m *memoryReviews) DeleteAllReviews(context.Context) (int64, error) { return 0, nil }

func (m *memoryReviews) FindReview(context.Context, string) (domain.Review, error) {
	return domain.Review{}, ErrReviewNotFound
}

func (m *memoryReviews) FindBySerial(context.Context, int64) (domain.Review, error) {
	return domain.Review{}, ErrReviewNotFound
}

func (m *memoryReviews) Inserts() []domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Review(nil), m.inserts...)
}

type memoryBlobs struct {
	delay time.Duration
	err   error
	mu    sync.Mutex
	data  map[string][]byte
	calls atomic.Int32
}

func (b *memoryBlobs) UploadBlob(ctx context.Context, bucket, filename, _ string, data []byte) (string, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.err != nil {
		return "", b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string][]byte)
	}
	b.data[bucket+"/"+filename] = data
	return "https://media.test/media/" + bucket + "/" + filename, nil
}

func (b *memoryBlobs) OpenBlob(_ context.Context, bucket, filename string) (*Blob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[bucket+"/"+filename]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return &Blob{ReadCloser: io.NopCloser(strings.NewReader(string(data))), Size: int64(len(data))}, nil
}

// scriptedFaces answers ListRecentItems from a per-attempt script.
type scriptedFaces struct {
	uploadDelay time.Duration
	callDelay   time.Duration
	uploadErr   error
	reindexErr  error
	listErr     error
	script      func(attempt int) []domain.FaceItem
	cluster     []domain.FaceItem
	clusterErr  error

	uploads   atomic.Int32
	reindexes atomic.Int32
	lists     atomic.Int32
}

func (f *scriptedFaces) UploadImage(ctx context.Context, _ []byte, _ string) error {
	f.uploads.Add(1)
	if err := f.pause(ctx); err != nil {
		return err
	}
	if f.uploadDelay > 0 {
		select {
		case <-time.After(f.uploadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.uploadErr
}

func (f *scriptedFaces) TriggerReindex(ctx context.Context) error {
	f.reindexes.Add(1)
	if err := f.pause(ctx); err != nil {
		return err
	}
	return f.reindexErr
}

func (f *scriptedFaces) ListRecentItems(ctx context.Context, _ int) ([]domain.FaceItem, error) {
	attempt := int(f.lists.Add(1))
	if err := f.pause(ctx); err != nil {
		return nil, err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.script == nil {
		return nil, nil
	}
	return f.script(attempt), nil
}

func (f *scriptedFaces) QueryByClusterID(context.Context, string, int) ([]domain.FaceItem, error) {
	return f.cluster, f.clusterErr
}

// pause simulates a slow gateway round trip that honours ctx.
func (f *scriptedFaces) pause(ctx context.Context) error {
	if f.callDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.callDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *scriptedFaces) calls() int32 {
	return f.uploads.Load() + f.reindexes.Load() + f.lists.Load()
}

type staticSettings struct {
	cfg   domain.StationConfig
	found bool
	err   error
}

func (s *staticSettings) GetSettings(context.Context) (domain.StationConfig, bool, error) {
	return s.cfg, s.found, s.err
}

func (s *staticSettings) UpsertSettings(_ context.Context, cfg domain.StationConfig) error {
	s.cfg = cfg
	s.found = true
	return nil
}

type recordingCamera struct {
	mu      sync.Mutex
	streams []*recordingStream
	err     error
}

type recordingStream struct {
	stopped atomic.Bool
}

func (s *recordingStream) Stop() { s.stopped.Store(true) }

func (c *recordingCamera) Open(context.Context) (MediaStream, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stream := &recordingStream{}
	c.streams = append(c.streams, stream)
	return stream, nil
}

func (c *recordingCamera) openStreams() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	open := 0
	for _, s := range c.streams {
		if !s.stopped.Load() {
			open++
		}
	}
	return open
}

func (c *recordingCamera) opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

// jpegPhoto is a minimal JPEG header that sniffs as image/jpeg.
func jpegPhoto() Photo {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
	return Photo{Data: data, ContentType: "image/jpeg"}
}

func markerItem(name, subject string) domain.FaceItem {
	return domain.FaceItem{
		ID:           "item-" + name,
		OriginalName: name,
		Markers:      []domain.FaceMarker{{SubjectID: subject}},
	}
}
