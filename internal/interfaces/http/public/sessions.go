package public

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
)

type nameRequest struct {
	Name string `json:"name"`
}

type ratingRequest struct {
	Value int `json:"value"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type suggestionRequest struct {
	Text string `json:"text"`
}

type galleryRequest struct {
	FaceID string `json:"faceId"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type captureRequest struct {
	Photo string `json:"photo"`
}

// sessionCreateHandler はクエリの mode/id/faceId でキオスクセッションを開始する。
func (h *Handler) sessionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		sel := kioskapp.ParseModeSelection(r.URL.Query())
		session := h.sessions.Create(sel, lang)
		h.respond.JSON(w, http.StatusCreated, h.buildSessionResponse(session.Snapshot(), lang))
	}
}

func (h *Handler) sessionSnapshotHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, _ *http.Request, _ *kioskapp.Session) error {
		return nil
	})
}

func (h *Handler) sessionCloseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if !h.sessions.Close(id) {
			h.respond.Fail(w, h.respond.Lang(r), common.ErrSessionNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// sessionActionHandler は本文を持たない遷移 (start, next, submit など) をまとめて扱う。
func (h *Handler) sessionActionHandler() http.HandlerFunc {
	return h.withSession(func(ctx context.Context, r *http.Request, s *kioskapp.Session) error {
		switch action := chi.URLParam(r, "action"); action {
		case "start":
			return s.Start(ctx)
		case "cancel":
			return s.Cancel(ctx)
		case "next":
			return s.Next()
		case "back":
			return s.Back(ctx)
		case "submit":
			return s.Submit(ctx)
		case "finish":
			return s.Finish(ctx)
		case "display":
			return s.OpenDisplay()
		case "admin":
			return s.RequestAdmin()
		case "close-overlay":
			return s.CloseOverlay()
		default:
			return fmt.Errorf("%w: unknown action %q", common.ErrBadRequest, action)
		}
	})
}

// sessionCaptureHandler は生の画像本文、または {"photo": "<data URL>"} を受け付ける。
func (h *Handler) sessionCaptureHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, r *http.Request, s *kioskapp.Session) error {
		photo, err := readPhoto(r)
		if err != nil {
			return err
		}
		return s.CapturePhoto(photo)
	})
}

func (h *Handler) sessionNameHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, r *http.Request, s *kioskapp.Session) error {
		var req nameRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			return err
		}
		return s.SetName(req.Name)
	})
}

func (h *Handler) sessionRatingHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, r *http.Request, s *kioskapp.Session) error {
		var req ratingRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			return err
		}
		return s.Rate(req.Value)
	})
}

func (h *Handler) sessionCommentHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, r *http.Request, s *kioskapp.Session) error {
		var req commentRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			return err
		}
		return s.SetComment(req.Comment)
	})
}

func (h *Handler) sessionSuggestionHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, r *http.Request, s *kioskapp.Session) error {
		var req suggestionRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			return err
		}
		return s.AddSuggestion(req.Text)
	})
}

func (h *Handler) sessionGalleryHandler() http.HandlerFunc {
	return h.withSession(func(_ context.Context, r *http.Request, s *kioskapp.Session) error {
		var req galleryRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			return err
		}
		return s.OpenGallery(req.FaceID)
	})
}

// sessionLoginHandler はアクセスコードを検証し、管理オーバーレイと管理トークンを返す。
func (h *Handler) sessionLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.sessions.Get(strings.TrimSpace(chi.URLParam(r, "id")))
		if !ok {
			h.respond.Fail(w, h.respond.Lang(r), common.ErrSessionNotFound)
			return
		}
		lang := session.Lang()

		var req codeRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			h.respond.Fail(w, lang, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		token, err := session.Login(ctx, req.Code)
		if err != nil {
			h.logger.Info("station login rejected", zap.String("sessionId", session.ID()), zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}
		snapshot := h.buildSessionResponse(session.Snapshot(), lang)
		h.respond.JSON(w, http.StatusOK, loginResponse{Token: token, Session: &snapshot})
	}
}

// withSession はセッションを解決して op を実行し、成功時は最新のスナップショットを返す。
func (h *Handler) withSession(op func(ctx context.Context, r *http.Request, s *kioskapp.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.sessions.Get(strings.TrimSpace(chi.URLParam(r, "id")))
		if !ok {
			h.respond.Fail(w, h.respond.Lang(r), common.ErrSessionNotFound)
			return
		}
		lang := session.Lang()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := op(ctx, r, session); err != nil {
			h.respond.Fail(w, lang, err)
			return
		}
		h.respond.JSON(w, http.StatusOK, h.buildSessionResponse(session.Snapshot(), lang))
	}
}

func readPhoto(r *http.Request) (kioskapp.Photo, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, common.MaxPhotoBody+1))
	if err != nil {
		return kioskapp.Photo{}, fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	if len(body) > common.MaxPhotoBody {
		return kioskapp.Photo{}, kioskapp.ErrPhotoTooLarge
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req captureRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return kioskapp.Photo{}, fmt.Errorf("%w: %v", common.ErrBadRequest, err)
		}
		return kioskapp.DecodeDataURL(req.Photo)
	}
	return kioskapp.NewPhoto(body)
}
