package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaURL(t *testing.T) {
	assert.Equal(t, "https://kiosk.test/media/review-photos/a%20b.jpg", MediaURL(" https://kiosk.test/ ", "review-photos", "a b.jpg"))
	assert.Equal(t, "/media/logos/logo.png", MediaURL("", "logos", "logo.png"))
}

func TestUnconfiguredBackend(t *testing.T) {
	backend := UnconfiguredBackend()

	_, err := backend.Reviews.ListReviews(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, _, err = backend.Settings.GetSettings(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = backend.Blobs.UploadBlob(context.Background(), "b", "f", "image/jpeg", []byte{1})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, backend.Close(context.Background()))
}
