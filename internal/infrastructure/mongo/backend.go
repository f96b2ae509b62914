package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
)

// BackendConfig は MongoDB バックエンドのコレクション名と公開 URL を保持する。
type BackendConfig struct {
	Database           string
	ReviewCollection   string
	SettingsCollection string
	CounterCollection  string
	MediaBaseURL       string
}

// Connect は URI へ接続し、Primary への疎通を確認したクライアントを返す。
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// NewBackend は各ゲートウェイを束ねた application.Backend を返す。Close でクライアントを切断する。
func NewBackend(client *mongo.Client, cfg BackendConfig) application.Backend {
	db := client.Database(cfg.Database)
	return application.Backend{
		Reviews:  NewReviewRepository(db, cfg.ReviewCollection, cfg.CounterCollection),
		Settings: NewSettingsRepository(db, cfg.SettingsCollection),
		Blobs:    NewBlobStore(db, cfg.MediaBaseURL),
		Close: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}
}

// EnsureIndexes は連番の一意制約と一覧用のソートインデックスを作成する。
func EnsureIndexes(ctx context.Context, db *mongo.Database, reviewCollection string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := db.Collection(reviewCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serial_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	})
	return err
}
