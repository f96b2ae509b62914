package public

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

const (
	streamWriteWait  = 10 * time.Second
	streamSendBuffer = 16
)

// streamMessage is pushed to display clients over the wall stream.
type streamMessage struct {
	Type   string        `json:"type"`
	View   *wallResponse `json:"view,omitempty"`
	Offset *float64      `json:"offset,omitempty"`
}

// clientMessage is what a display client reports about its container.
type clientMessage struct {
	Type         string  `json:"type"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

func (h *Handler) wallOptions(r *http.Request) kioskapp.WallOptions {
	q := r.URL.Query()
	opts := kioskapp.WallOptions{Columns: h.wallColumns}
	switch kioskapp.Mode(strings.ToLower(strings.TrimSpace(q.Get("mode")))) {
	case kioskapp.ModeDisplay:
		opts.FullScreen = true
	case kioskapp.ModeReview:
		opts.SingleReviewID = strings.TrimSpace(q.Get("id"))
	}
	if v, ok := common.ParsePositiveInt(q.Get("columns"), opts.Columns); ok {
		opts.Columns = v
	}
	return opts
}

// wallHandler は現在のフィードからレビューウォールを組み立てて返す。
func (h *Handler) wallHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		status, _ := h.feed.Status()
		view := kioskapp.BuildWall(h.feed.Reviews(), h.wallOptions(r))
		h.respond.JSON(w, http.StatusOK, h.buildWallResponse(view, status, lang))
	}
}

// reviewListHandler は表示中のレビュー一覧 (新しい順) を返す。
func (h *Handler) reviewListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, _ := h.feed.Status()
		items := common.NewReviewPayloads(h.feed.Reviews())
		h.respond.JSON(w, http.StatusOK, reviewListResponse{
			Items:  items,
			Status: string(status),
			Total:  len(items),
		})
	}
}

// wallStreamHandler はフィードの変化とスクロール位置を WebSocket で配信する。
func (h *Handler) wallStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		opts := h.wallOptions(r)

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("wall stream upgrade failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		stream := &wallStream{
			handler: h,
			conn:    conn,
			lang:    lang,
			opts:    opts,
			send:    make(chan streamMessage, streamSendBuffer),
			changed: make(chan struct{}, 1),
			loop:    kioskapp.NewScrollLoop(h.clock, kioskapp.ScrollStep),
		}
		stream.viewport = &streamViewport{stream: stream}
		unwatch := h.feed.Watch(func([]domain.Review) { stream.markChanged() })

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			stream.writePump(ctx)
		}()
		go func() {
			defer wg.Done()
			stream.refreshPump(ctx)
		}()

		stream.markChanged()
		stream.readPump(ctx)

		unwatch()
		stream.shutdown()
		cancel()
		wg.Wait()
		_ = conn.Close()
	}
}

type wallStream struct {
	handler  *Handler
	conn     *websocket.Conn
	lang     string
	opts     kioskapp.WallOptions
	send     chan streamMessage
	changed  chan struct{}
	loop     *kioskapp.ScrollLoop
	viewport *streamViewport

	mu         sync.Mutex
	autoScroll bool
	closed     bool
}

func (s *wallStream) markChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// push enqueues msg, waiting only while the stream is alive.
func (s *wallStream) push(ctx context.Context, msg streamMessage) {
	select {
	case s.send <- msg:
	case <-ctx.Done():
	}
}

// readPump は切断されるまでクライアントのビューポート報告を読み続ける。
func (s *wallStream) readPump(ctx context.Context) {
	pongWait := s.handler.pingPeriod * 2
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.handler.logger.Debug("wall stream closed", zap.Error(err))
			}
			return
		}
		if msg.Type != "viewport" {
			continue
		}
		s.viewport.update(msg.ScrollHeight, msg.ClientHeight)
		s.syncLoop(ctx)
	}
}

// refreshPump rebuilds the wall after every feed change.
func (s *wallStream) refreshPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
		}
		status, _ := s.handler.feed.Status()
		view := kioskapp.BuildWall(s.handler.feed.Reviews(), s.opts)
		resp := s.handler.buildWallResponse(view, status, s.lang)

		s.mu.Lock()
		s.autoScroll = view.AutoScroll
		s.mu.Unlock()

		s.push(ctx, streamMessage{Type: "wall", View: &resp})
		s.syncLoop(ctx)
	}
}

// syncLoop keeps exactly one scroll chain running while the wall qualifies for it.
// readPump and refreshPump both call it; the decision and the start/stop run under s.mu.
func (s *wallStream) syncLoop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := !s.closed && s.autoScroll && s.viewport.measured()
	switch {
	case want && !s.loop.Running():
		s.loop.Start(ctx, s.viewport)
	case !want && s.loop.Running():
		s.loop.Stop()
	}
}

// shutdown stops the scroll chain for good; later syncLoop calls are no-ops.
func (s *wallStream) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loop.Stop()
}

func (s *wallStream) writePump(ctx context.Context) {
	ticker := s.handler.clock.Ticker(s.handler.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.handler.logger.Debug("wall stream write failed", zap.Error(err))
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}

// streamViewport mirrors the client's container and forwards offsets as scroll frames.
type streamViewport struct {
	stream *wallStream

	mu           sync.Mutex
	scrollHeight float64
	clientHeight float64
}

func (v *streamViewport) update(scrollHeight, clientHeight float64) {
	v.mu.Lock()
	v.scrollHeight, v.clientHeight = scrollHeight, clientHeight
	v.mu.Unlock()
}

func (v *streamViewport) measured() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollHeight > v.clientHeight && v.clientHeight > 0
}

func (v *streamViewport) ScrollHeight() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollHeight
}

func (v *streamViewport) ClientHeight() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clientHeight
}

// SetScrollTop drops frames the client has not drained yet.
func (v *streamViewport) SetScrollTop(offset float64) {
	select {
	case v.stream.send <- streamMessage{Type: "scroll", Offset: &offset}:
	default:
	}
}
