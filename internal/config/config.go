package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreDriver selects the storage backend.
type StoreDriver string

const (
	DriverMongo    StoreDriver = "mongo"
	DriverPostgres StoreDriver = "postgres"
)

// envPrefixes are tried in order after the bare key so the same .env works for the kiosk front-end builds.
var envPrefixes = []string{"", "VITE_", "REACT_APP_", "PUBLIC_"}

// MongoConfig holds MongoDB connection and collection names.
type MongoConfig struct {
	URI                string
	Database           string
	ReviewCollection   string
	SettingsCollection string
	CounterCollection  string
	ConnectTimeout     time.Duration
}

// PostgresConfig holds the PostgreSQL connection string.
type PostgresConfig struct {
	DSN            string
	ConnectTimeout time.Duration
}

// RedisConfig selects the cross-instance broker. An empty Addr keeps the broker in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// PhotoPrismConfig configures the face recognition gateway.
type PhotoPrismConfig struct {
	URL          string
	APIKey       string
	UploadPath   string
	PreviewToken string
	RatePerSec   int
}

// FaceIDConfig is the polling budget of face identification.
type FaceIDConfig struct {
	Attempts    int
	Interval    time.Duration
	RecentCount int
	Slack       time.Duration
}

// AdminConfig configures the station access gate.
type AdminConfig struct {
	AccessCodes []string
	JWTSecret   []byte
	JWTIssuer   string
	TokenTTL    time.Duration
}

// MessengerConfig configures the new-review notification.
type MessengerConfig struct {
	Endpoint           string
	Destination        string
	Timeout            time.Duration
	AdminReviewBaseURL string
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr           string
	AppEnv         string
	Version        string
	LogLevel       string
	LogFormat      string
	SentryDSN      string
	AllowedOrigins []string
	DefaultLang    string

	StoreDriver      StoreDriver
	Mongo            MongoConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	BlobBucket       string
	MediaBaseURL     string
	FallbackPhotoURL string

	PhotoPrism      PhotoPrismConfig
	FaceID          FaceIDConfig
	GalleryPageSize int

	ReviewLimit          int
	ReviewPollInterval   time.Duration
	SettingsPollInterval time.Duration
	ThanksDwell          time.Duration
	AutoAdvanceDelay     time.Duration
	SessionIdleTTL       time.Duration

	Admin     AdminConfig
	Messenger MessengerConfig
}

// StoreConfigured reports whether credentials exist for the selected driver.
func (c Config) StoreConfigured() bool {
	switch c.StoreDriver {
	case DriverPostgres:
		return c.Postgres.DSN != ""
	default:
		return c.Mongo.URI != ""
	}
}

// Load reads .env (when present) and the environment and returns a fully populated Config.
// Missing store credentials are not an error: the kiosk starts in the config_required state.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		v, err := parseDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	integer := func(key string, fallback int) int {
		v, err := parseInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	driver := StoreDriver(strings.ToLower(envOrDefault("STORE_DRIVER", string(DriverMongo))))
	switch driver {
	case DriverMongo, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unsupported driver %q", driver))
	}

	connectTimeout := duration("MONGO_CONNECT_TIMEOUT", 10*time.Second)

	cfg := Config{
		Addr:           envOrDefault("HTTP_ADDR", ":8080"),
		AppEnv:         envOrDefault("APP_ENV", "development"),
		Version:        envOrDefault("VERSION", "dev"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		SentryDSN:      lookup("SENTRY_DSN"),
		AllowedOrigins: parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		DefaultLang:    envOrDefault("DEFAULT_LANGUAGE", "en"),

		StoreDriver: driver,
		Mongo: MongoConfig{
			URI:                lookup("MONGO_URI"),
			Database:           envOrDefault("MONGO_DB", "haraj-kiosk"),
			ReviewCollection:   envOrDefault("REVIEW_COLLECTION", "reviews"),
			SettingsCollection: envOrDefault("SETTINGS_COLLECTION", "settings"),
			CounterCollection:  envOrDefault("COUNTER_COLLECTION", "counters"),
			ConnectTimeout:     connectTimeout,
		},
		Postgres: PostgresConfig{
			DSN:            lookup("POSTGRES_DSN"),
			ConnectTimeout: connectTimeout,
		},
		Redis: RedisConfig{
			Addr:     lookup("REDIS_ADDR"),
			Password: lookup("REDIS_PASSWORD"),
			DB:       integer("REDIS_DB", 0),
			Channel:  envOrDefault("REDIS_CHANNEL", "haraj-kiosk:reviews:insert"),
		},
		BlobBucket:       envOrDefault("BLOB_BUCKET", "review-photos"),
		MediaBaseURL:     lookup("MEDIA_BASE_URL"),
		FallbackPhotoURL: lookup("FALLBACK_PHOTO_URL"),

		PhotoPrism: PhotoPrismConfig{
			URL:          lookup("PHOTOPRISM_URL"),
			APIKey:       lookup("PHOTOPRISM_API_KEY"),
			UploadPath:   envOrDefault("PHOTOPRISM_UPLOAD_PATH", "kiosk"),
			PreviewToken: envOrDefault("PHOTOPRISM_PREVIEW_TOKEN", "public"),
			RatePerSec:   integer("PHOTOPRISM_RATE_LIMIT", 5),
		},
		FaceID: FaceIDConfig{
			Attempts:    integer("FACE_ID_ATTEMPTS", 6),
			Interval:    duration("FACE_ID_INTERVAL", 2*time.Second),
			RecentCount: integer("FACE_ID_RECENT_COUNT", 5),
			Slack:       duration("FACE_ID_SLACK", 4*time.Second),
		},
		GalleryPageSize: integer("GALLERY_PAGE_SIZE", 100),

		ReviewLimit:          integer("REVIEW_LIMIT", 50),
		ReviewPollInterval:   duration("REVIEW_POLL_INTERVAL", 15*time.Second),
		SettingsPollInterval: duration("SETTINGS_POLL_INTERVAL", 30*time.Second),
		ThanksDwell:          duration("THANKS_DWELL", 12*time.Second),
		AutoAdvanceDelay:     duration("AUTO_ADVANCE_DELAY", 600*time.Millisecond),
		SessionIdleTTL:       duration("SESSION_IDLE_TTL", 30*time.Minute),

		Admin: AdminConfig{
			AccessCodes: parseList("STATION_ACCESS_CODES", nil),
			JWTSecret:   []byte(lookup("ADMIN_JWT_SECRET")),
			JWTIssuer:   envOrDefault("ADMIN_JWT_ISSUER", "haraj-kiosk"),
			TokenTTL:    duration("ADMIN_TOKEN_TTL", 8*time.Hour),
		},
		Messenger: MessengerConfig{
			Endpoint:           lookup("MESSENGER_GATEWAY_URL"),
			Destination:        envOrDefault("MESSENGER_GATEWAY_DESTINATION", "discord"),
			Timeout:            duration("MESSENGER_GATEWAY_TIMEOUT", 3*time.Second),
			AdminReviewBaseURL: lookup("ADMIN_REVIEW_BASE_URL"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// lookup resolves key through its prefixed fallbacks and trims the value.
func lookup(key string) string {
	for _, prefix := range envPrefixes {
		if v := strings.TrimSpace(os.Getenv(prefix + key)); v != "" {
			return v
		}
	}
	return ""
}

func envOrDefault(key, fallback string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func parseList(key string, fallback []string) []string {
	raw := lookup(key)
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
