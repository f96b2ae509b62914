package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

func sampleReview() domain.Review {
	serial := int64(42)
	return domain.Review{
		ID:           "rev-1",
		SerialNumber: &serial,
		Name:         "Alex",
		Comment:      "great booth",
		Ratings:      domain.Ratings{domain.OverallCategoryID: 5},
	}
}

func TestBuildReviewMessage(t *testing.T) {
	msg := BuildReviewMessage("https://admin.test/reviews/", sampleReview())

	assert.Contains(t, msg, "**Alex** left a new review.")
	assert.Contains(t, msg, "- Serial: #42")
	assert.Contains(t, msg, "- Overall: 5 / 5")
	assert.Contains(t, msg, "- Comment: great booth")
	assert.Contains(t, msg, "(https://admin.test/reviews/rev-1)")
}

func TestBuildReviewMessageWithoutOptionalParts(t *testing.T) {
	msg := BuildReviewMessage("", domain.Review{Ratings: domain.Ratings{domain.OverallCategoryID: 3}})

	assert.Contains(t, msg, "**A visitor**")
	assert.NotContains(t, msg, "Serial")
	assert.NotContains(t, msg, "Comment")
	assert.NotContains(t, msg, "admin")
}

func TestNewNotifierWithoutEndpoint(t *testing.T) {
	assert.Nil(t, NewNotifier(Config{}, nil))
}

func TestNotifyReviewPostsPayload(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewNotifier(Config{Endpoint: server.URL, Destination: "discord"}, nil)
	require.NoError(t, notifier.NotifyReview(context.Background(), sampleReview()))

	assert.Equal(t, "rev-1", got["userId"])
	assert.Equal(t, "discord", got["destination"])
	assert.Contains(t, got["text"], "Alex")
}

func TestNotifyReviewRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	notifier := NewNotifier(Config{Endpoint: server.URL, RetryWait: time.Millisecond}, nil)
	err := notifier.NotifyReview(context.Background(), sampleReview())

	assert.ErrorContains(t, err, "status=502")
	assert.EqualValues(t, maxAttempts, calls.Load())
}

func TestNotifyReviewDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	notifier := NewNotifier(Config{Endpoint: server.URL, RetryWait: time.Millisecond}, nil)
	assert.Error(t, notifier.NotifyReview(context.Background(), sampleReview()))
	assert.EqualValues(t, 1, calls.Load())
}
