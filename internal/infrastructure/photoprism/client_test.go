package photoprism

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Token  string
	Body   string
	File   string
}

type fakePhotoPrism struct {
	mu       sync.Mutex
	requests []recordedRequest
	photos   []map[string]any
	status   int
}

func (f *fakePhotoPrism) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  map[string]string{},
		Token:  r.Header.Get(authHeader),
	}
	for key := range r.URL.Query() {
		rec.Query[key] = r.URL.Query().Get(key)
	}
	if file, header, err := r.FormFile("files"); err == nil {
		data, _ := io.ReadAll(file)
		rec.File = header.Filename + ":" + string(data)
	} else if body, err := io.ReadAll(r.Body); err == nil {
		rec.Body = string(body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status := f.status
	photos := f.photos
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/api/v1/photos" {
		_ = json.NewEncoder(w).Encode(photos)
		return
	}
	_, _ = w.Write([]byte(`{"code":200}`))
}

func (f *fakePhotoPrism) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestClient(t *testing.T, fake *fakePhotoPrism) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	client := NewClient(Config{
		BaseURL:      server.URL + "/",
		APIKey:       "secret",
		PreviewToken: "prev",
		RatePerSec:   -1,
		Timeout:      time.Second,
	}, zap.NewNop())
	require.NotNil(t, client)
	return client
}

func TestNewClientRequiresKeyAndURL(t *testing.T) {
	assert.Nil(t, NewClient(Config{BaseURL: "http://pp"}, nil))
	assert.Nil(t, NewClient(Config{APIKey: "k"}, nil))
}

func TestUploadImageUploadsThenImports(t *testing.T) {
	fake := &fakePhotoPrism{}
	client := newTestClient(t, fake)

	require.NoError(t, client.UploadImage(context.Background(), []byte("jpegdata"), "capture-1.jpg"))

	requests := fake.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "/api/v1/upload/kiosk", requests[0].Path)
	assert.Equal(t, "capture-1.jpg:jpegdata", requests[0].File)
	assert.Equal(t, "secret", requests[0].Token)
	assert.Equal(t, "/api/v1/import/upload/kiosk", requests[1].Path)
	assert.JSONEq(t, `{"move":true}`, requests[1].Body)
}

func TestUploadImageRejectsEmptyData(t *testing.T) {
	fake := &fakePhotoPrism{}
	client := newTestClient(t, fake)

	assert.Error(t, client.UploadImage(context.Background(), nil, "x.jpg"))
	assert.Empty(t, fake.recorded())
}

func TestTriggerReindex(t *testing.T) {
	fake := &fakePhotoPrism{}
	client := newTestClient(t, fake)

	require.NoError(t, client.TriggerReindex(context.Background()))

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, "/api/v1/index", requests[0].Path)
	assert.JSONEq(t, `{"path":"/","rescan":false,"cleanup":false}`, requests[0].Body)
}

func TestListRecentItemsParsesMarkers(t *testing.T) {
	fake := &fakePhotoPrism{photos: []map[string]any{
		{
			"UID":          "pt1",
			"Title":        "Booth",
			"OriginalName": "capture-1.jpg",
			"TakenAt":      "2026-05-01T10:00:00Z",
			"Files": []map[string]any{{
				"Hash":    "abc123",
				"Primary": true,
				"Markers": []map[string]any{
					{"UID": "m1", "Type": "label", "FaceID": "ignored"},
					{"UID": "m2", "Type": "face", "Invalid": true, "FaceID": "bad"},
					{"UID": "m3", "Type": "face", "FaceID": "FACE123", "SubjUID": "", "Name": ""},
				},
			}},
		},
		{"UID": "pt2", "Hash": "def456"},
	}}
	client := newTestClient(t, fake)

	items, err := client.ListRecentItems(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "pt1", items[0].ID)
	assert.Equal(t, "abc123", items[0].Hash)
	assert.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), items[0].TakenAt.UTC())
	require.Len(t, items[0].Markers, 1)
	id, ok := items[0].FirstIdentity()
	assert.True(t, ok)
	assert.Equal(t, "FACE123", id)
	assert.Equal(t, "5", fake.recorded()[0].Query["count"])
	assert.Equal(t, "newest", fake.recorded()[0].Query["order"])

	assert.Empty(t, items[1].Markers)
	assert.Contains(t, items[1].ThumbnailURL, "/api/v1/t/def456/prev/fit_2048")
}

func TestQueryByClusterIDBuildsFilter(t *testing.T) {
	fake := &fakePhotoPrism{photos: []map[string]any{}}
	client := newTestClient(t, fake)

	_, err := client.QueryByClusterID(context.Background(), "jr4f2xk3v1a9b0c7", 100)
	require.NoError(t, err)
	_, err = client.QueryByClusterID(context.Background(), "FACE123", 100)
	require.NoError(t, err)
	items, err := client.QueryByClusterID(context.Background(), "  ", 100)
	require.NoError(t, err)
	assert.Nil(t, items)

	requests := fake.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "subject:jr4f2xk3v1a9b0c7", requests[0].Query["q"])
	assert.Equal(t, "face:FACE123", requests[1].Query["q"])
	assert.Equal(t, "100", requests[1].Query["count"])
}

func TestErrorStatusIsReturned(t *testing.T) {
	fake := &fakePhotoPrism{status: http.StatusUnauthorized}
	client := newTestClient(t, fake)

	_, err := client.ListRecentItems(context.Background(), 5)
	assert.ErrorContains(t, err, "unexpected status 401")
	assert.Error(t, client.TriggerReindex(context.Background()))
}

func TestThumbnailURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://pp.test/", APIKey: "k"}, nil)
	assert.Equal(t, "https://pp.test/api/v1/t/h1/public/fit_2048", client.ThumbnailURL("h1"))
	assert.Empty(t, client.ThumbnailURL(""))
}
