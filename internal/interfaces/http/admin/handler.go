package admin

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
)

// ConfirmDeleteAllHeader carries the typed phrase for DELETE /reviews.
const ConfirmDeleteAllHeader = "X-Confirm-Delete-All"

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger          *zap.Logger
	respond         common.Responder
	reviewService   adminapp.ReviewService
	settingsService adminapp.SettingsService
}

// Config provides dependencies for Handler.
type Config struct {
	Logger          *zap.Logger
	Catalog         *locales.Catalog
	ReviewService   adminapp.ReviewService
	SettingsService adminapp.SettingsService
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:          logger,
		respond:         common.Responder{Logger: logger, Catalog: cfg.Catalog},
		reviewService:   cfg.ReviewService,
		settingsService: cfg.SettingsService,
	}
}

// Register mounts admin routes onto router. Callers are expected to wrap it with token auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reviews", h.reviewListHandler())
	r.Get("/reviews/export", h.reviewExportHandler())
	r.Delete("/reviews", h.reviewDeleteAllHandler())
	r.Get("/reviews/{id}", h.reviewDetailHandler())
	r.Patch("/reviews/{id}", h.reviewUpdateHandler())
	r.Delete("/reviews/{id}", h.reviewDeleteHandler())
	r.Get("/settings", h.settingsGetHandler())
	r.Put("/settings", h.settingsUpdateHandler())
}
