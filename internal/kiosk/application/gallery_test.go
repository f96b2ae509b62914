package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

func TestGallerySkipsSentinelIdentities(t *testing.T) {
	faces := &scriptedFaces{cluster: []domain.FaceItem{{ID: "x"}}}
	gallery := NewGallery(faces, nil, zap.NewNop(), 0)

	for _, id := range []string{"", " ", domain.GuestFaceID, "GUEST_1700000000000", "ERR_1700000000000"} {
		view := gallery.Lookup(context.Background(), id)
		assert.Equal(t, GallerySkipped, view.State, id)
		assert.Empty(t, view.Items)
	}
}

func TestGalleryWithoutGatewayIsSkipped(t *testing.T) {
	view := NewGallery(nil, nil, zap.NewNop(), 0).Lookup(context.Background(), "subj-1")
	assert.Equal(t, GallerySkipped, view.State)
}

func TestGalleryEmptyResultIsProcessing(t *testing.T) {
	view := NewGallery(&scriptedFaces{}, nil, zap.NewNop(), 0).Lookup(context.Background(), "subj-1")
	assert.Equal(t, GalleryProcessing, view.State)
}

func TestGalleryFailureIsReported(t *testing.T) {
	faces := &scriptedFaces{clusterErr: errors.New("401")}
	view := NewGallery(faces, nil, zap.NewNop(), 0).Lookup(context.Background(), "subj-1")

	assert.Equal(t, GalleryFailed, view.State)
	assert.EqualError(t, view.Err, "401")
}

func TestGallerySortsNewestFirstAndNamesTheVisitor(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	faces := &scriptedFaces{cluster: []domain.FaceItem{
		{ID: "old", TakenAt: base},
		{ID: "new", TakenAt: base.Add(2 * time.Hour)},
		{ID: "mid", TakenAt: base.Add(time.Hour)},
	}}
	feed := NewFeed(&memoryReviews{}, nil, nil, zap.NewNop(), 10)
	visitor := review("r1", 1)
	visitor.Name = "Layla"
	visitor.FaceID = "subj-1"
	feed.Upsert(visitor)

	view := NewGallery(faces, feed, zap.NewNop(), 2).Lookup(context.Background(), "subj-1")

	assert.Equal(t, GalleryReady, view.State)
	assert.Equal(t, "Layla", view.PersonName)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "new", view.Items[0].ID)
	assert.Equal(t, "mid", view.Items[1].ID)
}
