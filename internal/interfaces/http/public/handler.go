package public

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
)

// Handler wires public kiosk endpoints to application services.
type Handler struct {
	logger      *zap.Logger
	respond     common.Responder
	sessions    *kioskapp.Sessions
	feed        *kioskapp.Feed
	settings    *kioskapp.StationSettings
	gallery     *kioskapp.Gallery
	access      adminapp.AccessService
	blobs       kioskapp.BlobStore
	clock       clock.Clock
	upgrader    websocket.Upgrader
	wallColumns int
	pingPeriod  time.Duration
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger         *zap.Logger
	Catalog        *locales.Catalog
	Sessions       *kioskapp.Sessions
	Feed           *kioskapp.Feed
	Settings       *kioskapp.StationSettings
	Gallery        *kioskapp.Gallery
	Access         adminapp.AccessService
	Blobs          kioskapp.BlobStore
	Clock          clock.Clock
	AllowedOrigins []string
	WallColumns    int
	PingPeriod     time.Duration
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	ping := cfg.PingPeriod
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Handler{
		logger:      logger,
		respond:     common.Responder{Logger: logger, Catalog: cfg.Catalog},
		sessions:    cfg.Sessions,
		feed:        cfg.Feed,
		settings:    cfg.Settings,
		gallery:     cfg.Gallery,
		access:      cfg.Access,
		blobs:       cfg.Blobs,
		clock:       clk,
		wallColumns: cfg.WallColumns,
		pingPeriod:  ping,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// Register mounts the /api routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/station", h.stationHandler())
	r.Get("/reviews", h.reviewListHandler())
	r.Get("/wall", h.wallHandler())
	r.Get("/wall/stream", h.wallStreamHandler())
	r.Get("/gallery/{faceId}", h.galleryHandler())
	r.Post("/auth/login", h.loginHandler())

	r.Post("/sessions", h.sessionCreateHandler())
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.sessionSnapshotHandler())
		r.Delete("/", h.sessionCloseHandler())
		r.Post("/capture", h.sessionCaptureHandler())
		r.Put("/name", h.sessionNameHandler())
		r.Put("/rating", h.sessionRatingHandler())
		r.Put("/comment", h.sessionCommentHandler())
		r.Post("/suggestions", h.sessionSuggestionHandler())
		r.Post("/gallery", h.sessionGalleryHandler())
		r.Post("/login", h.sessionLoginHandler())
		r.Post("/{action}", h.sessionActionHandler())
	})
}

// RegisterMedia mounts the blob streaming route.
func (h *Handler) RegisterMedia(r chi.Router) {
	r.Get("/media/{bucket}/{filename}", h.mediaHandler())
}

// originChecker mirrors the CORS allow-list for websocket upgrades.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
