package application

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// DefaultGalleryPageSize bounds one cluster query.
const DefaultGalleryPageSize = 100

// GalleryState distinguishes the lookup outcomes shown to the visitor.
type GalleryState string

const (
	GallerySkipped    GalleryState = "skipped"
	GalleryProcessing GalleryState = "processing"
	GalleryFailed     GalleryState = "failed"
	GalleryReady      GalleryState = "ready"
)

// GalleryView is the result of a lookup.
type GalleryView struct {
	FaceID     string
	State      GalleryState
	PersonName string
	Items      []domain.FaceItem
	Err        error
}

// Gallery looks up every photo that shares a face identity.
type Gallery struct {
	gateway  FaceGateway
	feed     *Feed
	logger   *zap.Logger
	pageSize int
}

// NewGallery builds a lookup. feed is used to show the visitor's name and may be nil.
func NewGallery(gateway FaceGateway, feed *Feed, logger *zap.Logger, pageSize int) *Gallery {
	if pageSize <= 0 {
		pageSize = DefaultGalleryPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gallery{gateway: gateway, feed: feed, logger: logger, pageSize: pageSize}
}

// Lookup queries the recognition service. Sentinel identities skip the query.
// An empty result means clustering may still be converging.
func (g *Gallery) Lookup(ctx context.Context, faceID string) GalleryView {
	faceID = strings.TrimSpace(faceID)
	view := GalleryView{FaceID: faceID}
	if domain.IsSentinelFaceID(faceID) || g.gateway == nil {
		view.State = GallerySkipped
		return view
	}
	if g.feed != nil {
		if r, ok := g.feed.FindByFaceID(faceID); ok {
			view.PersonName = r.Name
		}
	}

	items, err := g.gateway.QueryByClusterID(ctx, faceID, g.pageSize)
	if err != nil {
		g.logger.Warn("gallery lookup failed", zap.String("faceId", faceID), zap.Error(err))
		view.State = GalleryFailed
		view.Err = err
		return view
	}
	if len(items) == 0 {
		view.State = GalleryProcessing
		return view
	}

	sorted := append([]domain.FaceItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TakenAt.After(sorted[j].TakenAt)
	})
	if len(sorted) > g.pageSize {
		sorted = sorted[:g.pageSize]
	}
	view.State = GalleryReady
	view.Items = sorted
	return view
}
