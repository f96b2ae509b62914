package public

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
)

// stationHandler は読み込み済みのステーション設定を返す。未設定なら 409 config_required。
func (h *Handler) stationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		cfg, ok := h.settings.Current()
		if !ok {
			if err := h.settings.LastError(); err != nil {
				h.logger.Warn("station settings unavailable", zap.Error(err))
			}
			h.respond.Fail(w, lang, kioskapp.ErrConfigRequired)
			return
		}
		h.respond.JSON(w, http.StatusOK, common.NewStationPayload(cfg))
	}
}

// galleryHandler は顔 ID に紐づく写真一覧を返す。
func (h *Handler) galleryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		faceID := strings.TrimSpace(chi.URLParam(r, "faceId"))

		ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
		defer cancel()

		view := h.gallery.Lookup(ctx, faceID)
		h.respond.JSON(w, http.StatusOK, h.buildGalleryResponse(view, lang))
	}
}

// loginHandler はセッションを経由せずにアクセスコードから管理トークンを発行する。
func (h *Handler) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		if h.access == nil {
			h.respond.Fail(w, lang, kioskapp.ErrNotConfigured)
			return
		}

		var req codeRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			h.respond.Fail(w, lang, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		token, err := h.access.Login(ctx, req.Code)
		if err != nil {
			h.logger.Info("admin login rejected", zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}
		h.respond.JSON(w, http.StatusOK, loginResponse{Token: token})
	}
}

// mediaHandler はアップロード済みの画像をストレージからそのまま配信する。
func (h *Handler) mediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		bucket := strings.TrimSpace(chi.URLParam(r, "bucket"))
		filename := strings.TrimSpace(chi.URLParam(r, "filename"))
		if bucket == "" || filename == "" || strings.Contains(filename, "..") {
			h.respond.Fail(w, lang, kioskapp.ErrBlobNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		blob, err := h.blobs.OpenBlob(ctx, bucket, filename)
		if err != nil {
			if !errors.Is(err, kioskapp.ErrBlobNotFound) {
				h.logger.Error("open blob failed", zap.String("bucket", bucket), zap.String("filename", filename), zap.Error(err))
			}
			h.respond.Fail(w, lang, err)
			return
		}
		defer blob.Close()

		contentType := blob.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if blob.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, blob); err != nil {
			h.logger.Debug("stream blob interrupted", zap.String("filename", filename), zap.Error(err))
		}
	}
}
