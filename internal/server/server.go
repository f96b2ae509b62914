package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/config"
	"github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/messenger"
	mongostore "github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/mongo"
	"github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/photoprism"
	pgstore "github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/postgres"
	redisbroker "github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/redis"
	adminhttp "github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/public"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
)

const notifyTimeout = 15 * time.Second

// healthCheck は依存先 1 つ分の疎通確認。
type healthCheck func(ctx context.Context) error

// Server は HTTP サーバーのライフサイクルを管理し、Public/Admin の各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	catalog *locales.Catalog
	clock   clock.Clock

	backend  kioskapp.Backend
	checks   map[string]healthCheck
	broker   kioskapp.InsertBroker
	faces    kioskapp.FaceGateway
	notifier kioskapp.ReviewNotifier
	closers  []func(ctx context.Context) error

	settings *kioskapp.StationSettings
	feed     *kioskapp.Feed
	sessions *kioskapp.Sessions
	gallery  *kioskapp.Gallery

	access          adminapp.AccessService
	reviewService   adminapp.ReviewService
	settingsService adminapp.SettingsService
}

// New は設定からストレージ・ブローカー・外部ゲートウェイを選び、アプリケーションサービスを組み立てる。
// ストアの資格情報が無い場合はエラーにせず、未設定バックエンドで起動して config_required を表示させる。
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, catalog *locales.Catalog) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		clock:   clock.New(),
		checks:  make(map[string]healthCheck),
	}

	if err := s.connectBackend(ctx); err != nil {
		return nil, err
	}
	if err := s.connectBroker(ctx); err != nil {
		s.close(context.Background())
		return nil, err
	}
	s.connectGateways()
	s.buildServices()
	return s, nil
}

func (s *Server) connectBackend(ctx context.Context) error {
	if !s.cfg.StoreConfigured() {
		s.logger.Warn("store credentials missing, sessions will report config_required", zap.String("driver", string(s.cfg.StoreDriver)))
		s.backend = kioskapp.UnconfiguredBackend()
		return nil
	}

	switch s.cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, s.cfg.Postgres.DSN, s.cfg.Postgres.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgstore.Migrate(ctx, db); err != nil {
			s.logger.Warn("postgres schema migration failed", zap.Error(err))
		}
		s.backend = pgstore.NewBackend(db, pgstore.BackendConfig{MediaBaseURL: s.cfg.MediaBaseURL}, s.logger)
		s.checks["postgres"] = db.PingContext
	default:
		client, err := mongostore.Connect(ctx, s.cfg.Mongo.URI, s.cfg.Mongo.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		if err := mongostore.EnsureIndexes(ctx, client.Database(s.cfg.Mongo.Database), s.cfg.Mongo.ReviewCollection); err != nil {
			s.logger.Warn("mongo index creation failed", zap.Error(err))
		}
		s.backend = mongostore.NewBackend(client, mongostore.BackendConfig{
			Database:           s.cfg.Mongo.Database,
			ReviewCollection:   s.cfg.Mongo.ReviewCollection,
			SettingsCollection: s.cfg.Mongo.SettingsCollection,
			CounterCollection:  s.cfg.Mongo.CounterCollection,
			MediaBaseURL:       s.cfg.MediaBaseURL,
		})
		s.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	}
	s.closers = append(s.closers, s.backend.Close)
	s.logger.Info("store connected", zap.String("driver", string(s.cfg.StoreDriver)))
	return nil
}

func (s *Server) connectBroker(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.Redis.Addr) == "" {
		s.broker = kioskapp.NewLocalBroker()
		return nil
	}
	client := redisbroker.NewClient(redisbroker.Config{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
		Channel:  s.cfg.Redis.Channel,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisbroker.Ping(pingCtx, client); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis: %w", err)
	}
	s.broker = redisbroker.NewBroker(client, s.cfg.Redis.Channel, s.logger)
	s.checks["redis"] = func(ctx context.Context) error { return redisbroker.Ping(ctx, client) }
	s.closers = append(s.closers, func(context.Context) error { return client.Close() })
	return nil
}

// connectGateways は未設定なら nil を返す外部クライアントを、nil のままインターフェースへ入れないよう選別する。
func (s *Server) connectGateways() {
	if client := photoprism.NewClient(photoprism.Config{
		BaseURL:      s.cfg.PhotoPrism.URL,
		APIKey:       s.cfg.PhotoPrism.APIKey,
		UploadPath:   s.cfg.PhotoPrism.UploadPath,
		PreviewToken: s.cfg.PhotoPrism.PreviewToken,
		RatePerSec:   s.cfg.PhotoPrism.RatePerSec,
	}, s.logger); client != nil {
		s.faces = client
	} else {
		s.logger.Info("face recognition gateway not configured")
	}

	if notifier := messenger.NewNotifier(messenger.Config{
		Endpoint:           s.cfg.Messenger.Endpoint,
		Destination:        s.cfg.Messenger.Destination,
		Timeout:            s.cfg.Messenger.Timeout,
		AdminReviewBaseURL: s.cfg.Messenger.AdminReviewBaseURL,
	}, s.logger); notifier != nil {
		s.notifier = notifier
	}
}

func (s *Server) buildServices() {
	s.settings = kioskapp.NewStationSettings(s.backend.Settings, s.clock, s.logger)
	s.feed = kioskapp.NewFeed(s.backend.Reviews, s.broker, s.clock, s.logger, s.cfg.ReviewLimit)
	s.gallery = kioskapp.NewGallery(s.faces, s.feed, s.logger, s.cfg.GalleryPageSize)

	identifier := kioskapp.NewFaceIdentifier(s.faces, s.clock, s.logger, kioskapp.FaceIdentifierConfig{
		Attempts:    s.cfg.FaceID.Attempts,
		Interval:    s.cfg.FaceID.Interval,
		RecentCount: s.cfg.FaceID.RecentCount,
		Slack:       s.cfg.FaceID.Slack,
	})
	orchestrator := kioskapp.NewOrchestrator(s.backend.Reviews, s.backend.Blobs, identifier, s.clock, s.logger, kioskapp.OrchestratorConfig{
		Bucket:           s.cfg.BlobBucket,
		FallbackPhotoURL: s.cfg.FallbackPhotoURL,
	})

	s.access = adminapp.NewAccessService(adminapp.AccessConfig{
		Codes:  s.cfg.Admin.AccessCodes,
		Secret: s.cfg.Admin.JWTSecret,
		Issuer: s.cfg.Admin.JWTIssuer,
		TTL:    s.cfg.Admin.TokenTTL,
		Clock:  s.clock,
	})
	s.reviewService = adminapp.NewReviewService(s.backend.Reviews, s.feed)
	s.settingsService = adminapp.NewSettingsService(s.backend.Settings, s.settings)

	s.sessions = kioskapp.NewSessions(kioskapp.SessionDeps{
		Settings:     s.settings,
		Orchestrator: orchestrator,
		Access:       s.access,
		Clock:        s.clock,
		Logger:       s.logger,
		OnCommitted:  s.onCommitted,
	}, kioskapp.SessionConfig{
		ThanksDwell:      s.cfg.ThanksDwell,
		AutoAdvanceDelay: s.cfg.AutoAdvanceDelay,
	}, s.cfg.SessionIdleTTL, nil)
}

// onCommitted はフィードへ即時反映し、通知はセッションを待たせないよう別 goroutine で送る。
func (s *Server) onCommitted(ctx context.Context, review domain.Review) {
	s.feed.Commit(ctx, review)
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyReview(ctx, review); err != nil {
			s.logger.Warn("review notification failed", zap.String("reviewId", review.ID), zap.Error(err))
		}
	}()
}

// Router は /healthz, /api, /admin, /media を束ねたルーターを返す。
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.cfg.AllowedOrigins))

	router.Get("/healthz", s.healthHandler())

	publicHandler := publichttp.NewHandler(publichttp.Config{
		Logger:         s.logger,
		Catalog:        s.catalog,
		Sessions:       s.sessions,
		Feed:           s.feed,
		Settings:       s.settings,
		Gallery:        s.gallery,
		Access:         s.access,
		Blobs:          s.backend.Blobs,
		Clock:          s.clock,
		AllowedOrigins: s.cfg.AllowedOrigins,
	})
	router.Route("/api", publicHandler.Register)
	publicHandler.RegisterMedia(router)

	adminHandler := adminhttp.NewHandler(adminhttp.Config{
		Logger:          s.logger,
		Catalog:         s.catalog,
		ReviewService:   s.reviewService,
		SettingsService: s.settingsService,
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		adminHandler.Register(r)
	})
	return router
}

// Run は初回の設定・レビュー読み込み後に HTTP サーバーとバックグラウンドのポーリングを起動する。
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.warmUp(ctx)
	go s.settings.Run(ctx, s.cfg.SettingsPollInterval)
	go s.feed.Run(ctx, s.cfg.ReviewPollInterval)
	go s.sessions.Run(ctx)

	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errChan <- httpServer.ListenAndServe()
	}()

	err := waitForShutdown(httpServer, errChan, s.logger)
	cancel()
	s.sessions.CloseAll()
	s.close(context.Background())
	return err
}

func (s *Server) warmUp(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.settings.Load(loadCtx); err != nil {
		s.logger.Warn("initial station settings load failed", zap.Error(err))
	}
	if err := s.feed.Refresh(loadCtx); err != nil {
		s.logger.Warn("initial review load failed", zap.Error(err))
	}
}

// close は開いた接続をタイムアウト付きで閉じる。
func (s *Server) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Warn("close connection failed", zap.Error(err))
		}
	}
	s.closers = nil
}

// normaliseBaseURL は入力文字列をトリムして末尾スラッシュを削除したURLを返す。
func normaliseBaseURL(input string) string {
	trimmed := strings.TrimSpace(input)
	return strings.TrimRight(trimmed, "/")
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = normaliseBaseURL(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && len(allowed) > 0 && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,Accept-Language,"+adminhttp.ConfirmDeleteAllHeader)
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition,Content-Language")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

type healthResponse struct {
	Status         string            `json:"status"`
	Time           string            `json:"time"`
	Version        string            `json:"version,omitempty"`
	StoreDriver    string            `json:"storeDriver"`
	Configured     bool              `json:"configured"`
	SettingsLoaded bool              `json:"settingsLoaded"`
	FeedStatus     string            `json:"feedStatus"`
	Sessions       int               `json:"sessions"`
	Checks         map[string]string `json:"checks,omitempty"`
}

// healthHandler は各接続先への疎通を確認し、監視系からのヘルスチェック要求に応える。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		_, loaded := s.settings.Current()
		feedStatus, _ := s.feed.Status()
		resp := healthResponse{
			Status:         "ok",
			Time:           s.clock.Now().Format(time.RFC3339),
			Version:        s.cfg.Version,
			StoreDriver:    string(s.cfg.StoreDriver),
			Configured:     s.cfg.StoreConfigured(),
			SettingsLoaded: loaded,
			FeedStatus:     string(feedStatus),
			Sessions:       s.sessions.Len(),
		}
		status := http.StatusOK
		if len(s.checks) > 0 {
			resp.Checks = make(map[string]string, len(s.checks))
		}
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		commonhttp.WriteJSON(s.logger, w, status, resp)
	}
}

// authMiddleware は Authorization ヘッダーの管理トークンを検証し、クレームをコンテキストへ詰める。
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	respond := commonhttp.Responder{Logger: s.logger, Catalog: s.catalog}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := respond.Lang(r)
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			respond.Fail(w, lang, adminapp.ErrInvalidToken)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if tokenString == "" {
			respond.Fail(w, lang, adminapp.ErrInvalidToken)
			return
		}

		claims, err := s.access.Verify(tokenString)
		if err != nil {
			s.logger.Info("admin token rejected", zap.Error(err))
			respond.Fail(w, lang, err)
			return
		}

		ctx := commonhttp.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, logger *zap.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped unexpectedly", zap.Error(err))
			sentry.CaptureException(err)
			return err
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Warn("http server shutdown failed", zap.Error(err))
		}
	}
	return nil
}
