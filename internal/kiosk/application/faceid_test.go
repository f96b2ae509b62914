package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

func newTestIdentifier(g FaceGateway, attempts int, interval time.Duration) *FaceIdentifier {
	return NewFaceIdentifier(g, clock.New(), zap.NewNop(), FaceIdentifierConfig{
		Attempts:    attempts,
		Interval:    interval,
		RecentCount: 5,
	})
}

func TestIdentifyWithoutGatewayIsGuest(t *testing.T) {
	f := newTestIdentifier(nil, 3, time.Millisecond)
	assert.Equal(t, domain.GuestFaceID, f.Identify(context.Background(), jpegPhoto().Data, "a.jpg"))
}

func TestIdentifyWithoutPhotoSkipsGateway(t *testing.T) {
	faces := &scriptedFaces{}
	f := newTestIdentifier(faces, 3, time.Millisecond)

	assert.Equal(t, domain.GuestFaceID, f.Identify(context.Background(), nil, "a.jpg"))
	assert.Zero(t, faces.calls())
}

func TestIdentifyReturnsFirstMarker(t *testing.T) {
	faces := &scriptedFaces{script: func(attempt int) []domain.FaceItem {
		if attempt < 3 {
			return []domain.FaceItem{{ID: "no-face"}}
		}
		return []domain.FaceItem{markerItem("other.jpg", "subj-other"), markerItem("1700_abcd.jpg", "subj-1")}
	}}
	f := newTestIdentifier(faces, 6, 5*time.Millisecond)

	id := f.Identify(context.Background(), jpegPhoto().Data, "1700_abcd.jpg")

	assert.Equal(t, "subj-1", id)
	assert.EqualValues(t, 3, faces.lists.Load())
	assert.EqualValues(t, 1, faces.uploads.Load())
	assert.EqualValues(t, 1, faces.reindexes.Load())
}

func TestIdentifyFallsBackToClusterID(t *testing.T) {
	faces := &scriptedFaces{script: func(int) []domain.FaceItem {
		return []domain.FaceItem{{Markers: []domain.FaceMarker{{ClusterID: "cluster-9"}}}}
	}}
	f := newTestIdentifier(faces, 2, time.Millisecond)

	assert.Equal(t, "cluster-9", f.Identify(context.Background(), jpegPhoto().Data, "x.jpg"))
}

func TestIdentifyPollingIsBounded(t *testing.T) {
	faces := &scriptedFaces{script: func(int) []domain.FaceItem { return nil }}
	const attempts = 4
	const interval = 50 * time.Millisecond
	f := newTestIdentifier(faces, attempts, interval)

	started := time.Now()
	id := f.Identify(context.Background(), jpegPhoto().Data, "x.jpg")
	elapsed := time.Since(started)

	assert.True(t, strings.HasPrefix(id, "GUEST_"), id)
	assert.NotEqual(t, domain.GuestFaceID, id)
	assert.EqualValues(t, attempts, faces.lists.Load())
	assert.Less(t, elapsed, f.Budget())
	assert.GreaterOrEqual(t, elapsed, time.Duration(attempts-1)*interval)
}

func TestIdentifyErrorsDegradeToErrorSentinel(t *testing.T) {
	boom := errors.New("boom")
	cases := map[string]*scriptedFaces{
		"upload":  {uploadErr: boom},
		"reindex": {reindexErr: boom},
		"poll":    {listErr: boom},
	}
	for name, faces := range cases {
		t.Run(name, func(t *testing.T) {
			f := newTestIdentifier(faces, 3, time.Millisecond)
			id := f.Identify(context.Background(), jpegPhoto().Data, "x.jpg")
			assert.True(t, strings.HasPrefix(id, "ERR_"), id)
			assert.True(t, domain.IsSentinelFaceID(id))
		})
	}
}

func TestIdentifyHonoursCancellation(t *testing.T) {
	faces := &scriptedFaces{script: func(int) []domain.FaceItem { return nil }}
	f := newTestIdentifier(faces, 10, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	id := f.Identify(ctx, jpegPhoto().Data, "x.jpg")
	assert.True(t, strings.HasPrefix(id, "ERR_"), id)
	assert.EqualValues(t, 1, faces.lists.Load())
}

func TestIdentifyStopsAtDeadlineWithGuestFallback(t *testing.T) {
	faces := &scriptedFaces{callDelay: 300 * time.Millisecond}
	f := NewFaceIdentifier(faces, clock.New(), zap.NewNop(), FaceIdentifierConfig{
		Attempts:    3,
		Interval:    50 * time.Millisecond,
		RecentCount: 5,
		Slack:       100 * time.Millisecond,
	})
	require.Equal(t, 250*time.Millisecond, f.Deadline())

	started := time.Now()
	id := f.Identify(context.Background(), jpegPhoto().Data, "slow.jpg")
	elapsed := time.Since(started)

	assert.True(t, strings.HasPrefix(id, "GUEST_"), id)
	assert.NotEqual(t, domain.GuestFaceID, id)
	assert.Less(t, elapsed, f.Deadline()+200*time.Millisecond)
	assert.EqualValues(t, 1, faces.uploads.Load())
}

func TestIdentifyDeadlineDefaultsToBudgetPlusSlack(t *testing.T) {
	f := NewFaceIdentifier(&scriptedFaces{}, clock.New(), zap.NewNop(), FaceIdentifierConfig{
		Attempts: 6,
		Interval: 2 * time.Second,
	})
	assert.Equal(t, 12*time.Second, f.Budget())
	assert.Equal(t, 16*time.Second, f.Deadline())
}
