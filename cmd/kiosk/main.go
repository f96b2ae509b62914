package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/config"
	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
	"github.com/sngm3741/haraj-kiosk/api/internal/logging"
	"github.com/sngm3741/haraj-kiosk/api/internal/server"
)

const serviceName = "haraj-kiosk"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
			Release:     cfg.Version,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	catalog, err := locales.NewCatalog(cfg.DefaultLang, logger)
	if err != nil {
		logger.Fatal("load message catalog failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := server.New(ctx, cfg, logger, catalog)
	cancel()
	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		logger.Fatal("server setup failed", zap.Error(err))
	}

	logger.Info("kiosk api starting",
		zap.String("env", cfg.AppEnv),
		zap.String("version", cfg.Version),
		zap.String("storeDriver", string(cfg.StoreDriver)),
	)
	if err := app.Run(); err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		logger.Fatal("server stopped", zap.Error(err))
	}
}
