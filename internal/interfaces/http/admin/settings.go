package admin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
)

func (h *Handler) settingsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		cfg, err := h.settingsService.Get(ctx)
		if err != nil {
			h.logger.Error("settings fetch failed", zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}
		h.respond.JSON(w, http.StatusOK, common.NewStationPayload(cfg))
	}
}

// settingsUpdateHandler は設定を丸ごと置き換え、稼働中のセッションへ即時反映する。
func (h *Handler) settingsUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)

		var req updateSettingsRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			h.respond.Fail(w, lang, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		saved, err := h.settingsService.Update(ctx, adminapp.UpdateSettingsCommand{
			LogoURL:       req.LogoURL,
			Background:    req.DomainBackground(),
			Categories:    req.DomainCategories(),
			FaceIDEnabled: req.FaceIDEnabled,
			Suggestions:   req.Suggestions,
		})
		if err != nil {
			h.logger.Warn("settings update failed", zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}
		h.logger.Info("station settings updated", zap.Int("categories", len(saved.Categories)), zap.Bool("faceIdEnabled", saved.FaceIDEnabled))
		h.respond.JSON(w, http.StatusOK, common.NewStationPayload(saved))
	}
}
