package public

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivedFrame struct {
	Type string `json:"type"`
	View *struct {
		AutoScroll bool `json:"autoScroll"`
		Count      int  `json:"count"`
	} `json:"view"`
	Offset *float64 `json:"offset"`
}

func dialWallStream(t *testing.T, f *fixture, query string) (*websocket.Conn, <-chan receivedFrame) {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/wall/stream" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	frames := make(chan receivedFrame, 256)
	go func() {
		defer close(frames)
		for {
			var frame receivedFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			frames <- frame
		}
	}()
	return conn, frames
}

func nextFrame(t *testing.T, frames <-chan receivedFrame, match func(receivedFrame) bool) receivedFrame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case frame, ok := <-frames:
			require.True(t, ok, "stream closed")
			if match(frame) {
				return frame
			}
		case <-deadline:
			require.FailNow(t, "expected frame did not arrive")
		}
	}
}

func TestWallStreamScrollsWrapsAndStopsBelowThreshold(t *testing.T) {
	f := newFixture(t, formStation())
	seedFeed(f, 3)
	conn, frames := dialWallStream(t, f, "?mode=display")

	wall := nextFrame(t, frames, func(fr receivedFrame) bool { return fr.Type == "wall" })
	require.NotNil(t, wall.View)
	assert.True(t, wall.View.AutoScroll)
	assert.Equal(t, 3, wall.View.Count)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "viewport", ScrollHeight: 105, ClientHeight: 100}))

	sawPositive := false
	for {
		frame := nextFrame(t, frames, func(fr receivedFrame) bool { return fr.Type == "scroll" })
		require.NotNil(t, frame.Offset, "scroll frames always carry an offset")
		assert.GreaterOrEqual(t, *frame.Offset, 0.0)
		assert.Less(t, *frame.Offset, 5.0)
		if *frame.Offset > 0 {
			sawPositive = true
			continue
		}
		if sawPositive {
			break
		}
	}

	f.feed.Remove("ra")
	shrunk := nextFrame(t, frames, func(fr receivedFrame) bool { return fr.Type == "wall" })
	require.NotNil(t, shrunk.View)
	assert.False(t, shrunk.View.AutoScroll)
	assert.Equal(t, 2, shrunk.View.Count)

	// Frames already queued before the stop may still drain.
	settle := time.After(100 * time.Millisecond)
drain:
	for {
		select {
		case <-frames:
		case <-settle:
			break drain
		}
	}
	select {
	case frame, ok := <-frames:
		if ok {
			assert.Failf(t, "scroll continued", "unexpected %q frame after the set shrank", frame.Type)
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWallStreamWithoutFullScreenNeverScrolls(t *testing.T) {
	f := newFixture(t, formStation())
	seedFeed(f, 4)
	conn, frames := dialWallStream(t, f, "")

	wall := nextFrame(t, frames, func(fr receivedFrame) bool { return fr.Type == "wall" })
	require.NotNil(t, wall.View)
	assert.False(t, wall.View.AutoScroll)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "viewport", ScrollHeight: 400, ClientHeight: 100}))
	select {
	case frame, ok := <-frames:
		if ok {
			assert.NotEqual(t, "scroll", frame.Type)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestScrollFrameEncodesZeroOffset(t *testing.T) {
	zero := 0.0
	raw, err := json.Marshal(streamMessage{Type: "scroll", Offset: &zero})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"scroll","offset":0}`, string(raw))
}
