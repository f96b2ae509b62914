package admin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reviewListHandler はシリアル番号または ID でレビューを検索する。q が空なら新しい順の一覧。
func (h *Handler) reviewListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		query := r.URL.Query()
		q := strings.TrimSpace(query.Get("q"))
		limit, _ := common.ParsePositiveInt(query.Get("limit"), adminapp.DefaultSearchLimit)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		reviews, err := h.reviewService.Search(ctx, q, limit)
		if err != nil {
			h.logger.Error("admin review search failed", zap.String("query", q), zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}
		h.respond.JSON(w, http.StatusOK, adminReviewListResponse{Items: common.NewReviewPayloads(reviews), Query: q})
	}
}

func (h *Handler) reviewDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		id := strings.TrimSpace(chi.URLParam(r, "id"))

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		review, err := h.reviewService.Detail(ctx, id)
		if err != nil {
			h.respond.Fail(w, lang, err)
			return
		}
		h.respond.JSON(w, http.StatusOK, common.NewReviewPayload(review))
	}
}

// reviewUpdateHandler は名前・コメント・評価を部分更新する。
func (h *Handler) reviewUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		id := strings.TrimSpace(chi.URLParam(r, "id"))

		var req updateReviewRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			h.respond.Fail(w, lang, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		updated, err := h.reviewService.Update(ctx, id, adminapp.UpdateReviewCommand{
			Name:    req.Name,
			Comment: req.Comment,
			Ratings: req.Ratings,
		})
		if err != nil {
			h.logger.Warn("admin review update failed", zap.String("reviewId", id), zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}
		h.respond.JSON(w, http.StatusOK, common.NewReviewPayload(updated))
	}
}

// reviewDeleteHandler は ?confirm=true のときだけ削除する。
func (h *Handler) reviewDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		confirmed := common.ParseBool(r.URL.Query().Get("confirm"))

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.reviewService.Delete(ctx, id, confirmed); err != nil {
			h.respond.Fail(w, lang, err)
			return
		}
		h.logger.Info("review deleted", zap.String("reviewId", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// reviewDeleteAllHandler は確認フレーズのヘッダーが一致したときだけ全件削除する。
func (h *Handler) reviewDeleteAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)
		phrase := r.Header.Get(ConfirmDeleteAllHeader)

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		deleted, err := h.reviewService.DeleteAll(ctx, phrase)
		if err != nil {
			h.respond.Fail(w, lang, err)
			return
		}
		claims, _ := common.ClaimsFromContext(r.Context())
		station := ""
		if claims != nil {
			station = claims.Station
		}
		h.logger.Warn("all reviews deleted", zap.Int64("deleted", deleted), zap.String("station", station))
		h.respond.JSON(w, http.StatusOK, deleteAllResponse{Deleted: deleted})
	}
}

// reviewExportHandler は全レビューを xlsx で返す。列は現在のカテゴリ設定に従う。
func (h *Handler) reviewExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := h.respond.Lang(r)

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		var categories []domain.RatingCategory
		if h.settingsService != nil {
			if cfg, err := h.settingsService.Get(ctx); err == nil {
				categories = cfg.Categories
			} else {
				h.logger.Warn("export falls back to default categories", zap.Error(err))
			}
		}

		var buf bytes.Buffer
		if err := h.reviewService.Export(ctx, categories, &buf); err != nil {
			h.logger.Error("review export failed", zap.Error(err))
			h.respond.Fail(w, lang, err)
			return
		}

		filename := fmt.Sprintf("reviews-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			h.logger.Debug("write export interrupted", zap.Error(err))
		}
	}
}
