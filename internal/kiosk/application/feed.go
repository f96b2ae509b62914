package application

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// DefaultReviewLimit is the number of reviews kept in memory.
const DefaultReviewLimit = 50

// FeedStatus distinguishes the initial load from a usable list.
type FeedStatus string

const (
	FeedLoading FeedStatus = "loading"
	FeedReady   FeedStatus = "ready"
	FeedError   FeedStatus = "error"
)

// Feed owns the in-memory review list. Polling, push notifications and local commits
// all merge into it by id.
type Feed struct {
	gateway ReviewGateway
	broker  InsertBroker
	clock   clock.Clock
	logger  *zap.Logger
	limit   int

	mu       sync.RWMutex
	reviews  []domain.Review
	status   FeedStatus
	lastErr  error
	version  uint64
	watchers map[uint64]func([]domain.Review)
	nextID   uint64
}

// NewFeed returns a feed in the loading state.
func NewFeed(gateway ReviewGateway, broker InsertBroker, clk clock.Clock, logger *zap.Logger, limit int) *Feed {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		gateway:  gateway,
		broker:   broker,
		clock:    clk,
		logger:   logger,
		limit:    limit,
		status:   FeedLoading,
		watchers: make(map[uint64]func([]domain.Review)),
	}
}

// Refresh replaces the list with the gateway's newest rows, keeping optimistic
// entries that are newer than anything the gateway returned.
// A failure keeps the last good list and only flips to FeedError when nothing is shown.
func (f *Feed) Refresh(ctx context.Context) error {
	rows, err := f.gateway.ListReviews(ctx, f.limit)
	if err != nil {
		f.mu.Lock()
		f.lastErr = err
		if len(f.reviews) == 0 {
			f.status = FeedError
		}
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	var newest int64
	for _, row := range rows {
		if row.Timestamp > newest {
			newest = row.Timestamp
		}
	}
	merged := make([]domain.Review, 0, len(rows)+1)
	for _, existing := range f.reviews {
		if existing.Timestamp > newest {
			merged = append(merged, existing)
		}
	}
	merged = append(merged, rows...)
	f.reviews = f.normalize(merged)
	f.status = FeedReady
	f.lastErr = nil
	reviews := f.bump()
	f.mu.Unlock()

	f.notify(reviews)
	return nil
}

// Upsert splices a review into the list, replacing any entry with the same id.
func (f *Feed) Upsert(review domain.Review) {
	f.mu.Lock()
	merged := make([]domain.Review, 0, len(f.reviews)+1)
	merged = append(merged, review)
	merged = append(merged, f.reviews...)
	f.reviews = f.normalize(merged)
	if f.status == FeedError || f.status == FeedLoading {
		f.status = FeedReady
	}
	reviews := f.bump()
	f.mu.Unlock()

	f.notify(reviews)
}

// Remove drops the review with id. Missing ids are ignored.
func (f *Feed) Remove(id string) {
	f.mu.Lock()
	kept := f.reviews[:0:0]
	for _, r := range f.reviews {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	changed := len(kept) != len(f.reviews)
	f.reviews = kept
	var reviews []domain.Review
	if changed {
		reviews = f.bump()
	}
	f.mu.Unlock()

	if changed {
		f.notify(reviews)
	}
}

// Clear empties the list after an admin delete-all.
func (f *Feed) Clear() {
	f.mu.Lock()
	f.reviews = nil
	reviews := f.bump()
	f.mu.Unlock()
	f.notify(reviews)
}

// Commit records a locally committed review and publishes it to other instances.
func (f *Feed) Commit(ctx context.Context, review domain.Review) {
	f.Upsert(review)
	if f.broker == nil {
		return
	}
	if err := f.broker.PublishInsert(ctx, review); err != nil {
		f.logger.Warn("publish review insert failed", zap.String("reviewId", review.ID), zap.Error(err))
	}
}

// Reviews returns a copy of the list, newest first.
func (f *Feed) Reviews() []domain.Review {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]domain.Review(nil), f.reviews...)
}

// Find returns the cached review with id.
func (f *Feed) Find(id string) (domain.Review, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.reviews {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Review{}, false
}

// FindByFaceID returns the newest cached review with the face identity.
func (f *Feed) FindByFaceID(faceID string) (domain.Review, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.reviews {
		if faceID != "" && r.FaceID == faceID {
			return r, true
		}
	}
	return domain.Review{}, false
}

// Status returns the load state and the last error.
func (f *Feed) Status() (FeedStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status, f.lastErr
}

// Version increases on every change.
func (f *Feed) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// Watch registers fn for list changes and returns its cancel function.
func (f *Feed) Watch(fn func([]domain.Review)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.watchers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
	}
}

// Run subscribes to the broker and polls every interval until ctx is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	if f.broker != nil {
		unsubscribe, err := f.broker.SubscribeInserts(ctx, f.Upsert)
		if err != nil {
			f.logger.Warn("subscribe to review inserts failed, relying on polling", zap.Error(err))
		} else {
			defer unsubscribe()
		}
	}
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := f.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := f.Refresh(refreshCtx); err != nil {
				f.logger.Warn("review refresh failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// normalize dedupes by id keeping the first occurrence, sorts newest first and caps the list.
func (f *Feed) normalize(reviews []domain.Review) []domain.Review {
	seen := make(map[string]struct{}, len(reviews))
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.ID != "" {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		out = append(out, r)
	}
	domain.SortNewestFirst(out)
	if len(out) > f.limit {
		out = out[:f.limit]
	}
	return out
}

// bump must be called with mu held.
func (f *Feed) bump() []domain.Review {
	f.version++
	return append([]domain.Review(nil), f.reviews...)
}

func (f *Feed) notify(reviews []domain.Review) {
	f.mu.RLock()
	watchers := make([]func([]domain.Review), 0, len(f.watchers))
	for _, fn := range f.watchers {
		watchers = append(watchers, fn)
	}
	f.mu.RUnlock()
	for _, fn := range watchers {
		fn(reviews)
	}
}
