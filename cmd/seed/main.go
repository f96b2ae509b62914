package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/config"
	mongostore "github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/mongo"
	pgstore "github.com/sngm3741/haraj-kiosk/api/internal/infrastructure/postgres"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
	"github.com/sngm3741/haraj-kiosk/api/internal/logging"
)

type seedOptions struct {
	reviewCount   int
	dropReviews   bool
	skipSettings  bool
	disableFaceID bool
	randomSeed    int64
}

var (
	visitorNames = []string{
		"Noura", "Faisal", "Lama", "Omar", "Reem", "Khalid", "Sara", "Yousef",
		"Hessa", "Abdullah", "Maha", "Turki", "Alex", "Priya", "", "Dana",
	}
	visitorComments = []string{
		"Amazing atmosphere!",
		"Great book selection, found everything on my list.",
		"The author sessions were the highlight of my day.",
		"Collection desk was a bit slow but staff were friendly.",
		"Will come back next year with the whole family.",
		"Loved the Artibhition corner.",
		"",
		"Coffee was great, seating was limited.",
	}
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel, "console", "haraj-kiosk-seed")
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.StoreConfigured() {
		logger.Fatal("store credentials are missing", zap.String("driver", string(cfg.StoreDriver)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("connect store failed", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			logger.Warn("close store failed", zap.Error(err))
		}
	}()

	station := domain.DefaultStationConfig()
	station.FaceIDEnabled = !opts.disableFaceID
	if !opts.skipSettings {
		if err := backend.Settings.UpsertSettings(ctx, station.Normalize()); err != nil {
			logger.Fatal("seed station settings failed", zap.Error(err))
		}
		logger.Info("station settings seeded", zap.Int("categories", len(station.Categories)), zap.Bool("faceIdEnabled", station.FaceIDEnabled))
	}

	if opts.dropReviews {
		deleted, err := backend.Reviews.DeleteAllReviews(ctx)
		if err != nil {
			logger.Fatal("drop reviews failed", zap.Error(err))
		}
		logger.Info("existing reviews deleted", zap.Int64("deleted", deleted))
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))
	reviews := generateReviews(rng, station.Categories, opts.reviewCount, cfg.FallbackPhotoURL, time.Now())
	for _, review := range reviews {
		committed, err := backend.Reviews.InsertReview(ctx, review)
		if err != nil {
			logger.Fatal("insert review failed", zap.String("name", review.Name), zap.Error(err))
		}
		logger.Debug("review inserted", zap.String("reviewId", committed.ID))
	}

	logger.Info("seed completed",
		zap.Int("reviews", len(reviews)),
		zap.String("driver", string(cfg.StoreDriver)),
		zap.Int64("seed", opts.randomSeed),
	)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.IntVar(&opts.reviewCount, "reviews", 24, "生成するデモレビュー数")
	flag.BoolVar(&opts.dropReviews, "drop", false, "既存レビューを削除してから投入する")
	flag.BoolVar(&opts.skipSettings, "skip-settings", false, "ステーション設定を書き換えない")
	flag.BoolVar(&opts.disableFaceID, "no-face-id", false, "顔認証を無効にした設定を書き込む")
	flag.Int64Var(&opts.randomSeed, "seed", time.Now().UnixNano(), "乱数シード（再現用）")
	flag.Parse()

	if opts.reviewCount < 0 {
		opts.reviewCount = 0
	}
	return opts
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (application.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.ConnectTimeout)
		if err != nil {
			return application.Backend{}, err
		}
		if err := pgstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return application.Backend{}, err
		}
		return pgstore.NewBackend(db, pgstore.BackendConfig{MediaBaseURL: cfg.MediaBaseURL}, logger), nil
	default:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
		if err != nil {
			return application.Backend{}, err
		}
		if err := mongostore.EnsureIndexes(ctx, client.Database(cfg.Mongo.Database), cfg.Mongo.ReviewCollection); err != nil {
			logger.Warn("ensure indexes failed", zap.Error(err))
		}
		return mongostore.NewBackend(client, mongostore.BackendConfig{
			Database:           cfg.Mongo.Database,
			ReviewCollection:   cfg.Mongo.ReviewCollection,
			SettingsCollection: cfg.Mongo.SettingsCollection,
			CounterCollection:  cfg.Mongo.CounterCollection,
			MediaBaseURL:       cfg.MediaBaseURL,
		}), nil
	}
}

// generateReviews は古い順に並ぶデモレビューを返す。挿入順が連番の順になる。
func generateReviews(rng *rand.Rand, categories []domain.RatingCategory, count int, photoURL string, now time.Time) []domain.Review {
	reviews := make([]domain.Review, 0, count)
	for i := 0; i < count; i++ {
		ratings := make(domain.Ratings, len(categories))
		for _, category := range categories {
			ratings[category.ID] = 3 + rng.Intn(3)
		}
		name := visitorNames[rng.Intn(len(visitorNames))]
		if name == "" {
			name = fmt.Sprintf("Visitor %d", i+1)
		}
		reviews = append(reviews, domain.Review{
			Name:      name,
			Photo:     photoURL,
			FaceID:    domain.GuestFaceID,
			Ratings:   ratings,
			Comment:   visitorComments[rng.Intn(len(visitorComments))],
			Timestamp: now.Add(-time.Duration(count-i) * 7 * time.Minute).UnixMilli(),
		})
	}
	return reviews
}
