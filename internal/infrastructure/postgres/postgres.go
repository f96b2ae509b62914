package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
)

const (
	undefinedColumn      = "42703"
	undefinedTable       = "42P01"
	invalidTextRepresent = "22P02"
)

// Schema creates the tables used by this package when they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS reviews (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	serial_number bigserial UNIQUE,
	name          text NOT NULL,
	photo         text,
	face_id       text,
	ratings       jsonb NOT NULL,
	comment       text,
	timestamp     bigint NOT NULL,
	created_at    timestamptz NOT NULL DEFAULT now(),
	updated_at    timestamptz
);
CREATE INDEX IF NOT EXISTS reviews_timestamp_idx ON reviews (timestamp DESC);
CREATE TABLE IF NOT EXISTS station_settings (
	id         text PRIMARY KEY,
	config     jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS blobs (
	bucket       text NOT NULL,
	filename     text NOT NULL,
	content_type text NOT NULL,
	data         bytea NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (bucket, filename)
);`

// BackendConfig holds the public media base URL.
type BackendConfig struct {
	MediaBaseURL string
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// NewBackend bundles the gateways over db. Close closes the pool.
func NewBackend(db *sql.DB, cfg BackendConfig, logger *zap.Logger) application.Backend {
	return application.Backend{
		Reviews:  NewReviewRepository(db, logger),
		Settings: NewSettingsRepository(db),
		Blobs:    NewBlobStore(db, cfg.MediaBaseURL),
		Close: func(context.Context) error {
			return db.Close()
		},
	}
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func translateError(err error) error {
	switch pqCode(err) {
	case undefinedColumn:
		return fmt.Errorf("%w: %v", application.ErrUnknownColumn, err)
	case invalidTextRepresent:
		return application.ErrReviewNotFound
	}
	if errors.Is(err, sql.ErrNoRows) {
		return application.ErrReviewNotFound
	}
	return err
}
