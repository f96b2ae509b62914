package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// StationSettingsID は設定ドキュメントの固定 _id。
const StationSettingsID = "station"

// SettingsRepository は application.SettingsGateway を MongoDB で実装する。
type SettingsRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewSettingsRepository(db *mongo.Database, collectionName string) *SettingsRepository {
	return &SettingsRepository{collection: db.Collection(collectionName), now: time.Now}
}

// GetSettings はドキュメントが存在しない場合 found=false を返す。
func (r *SettingsRepository) GetSettings(ctx context.Context) (domain.StationConfig, bool, error) {
	var doc SettingsDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": StationSettingsID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StationConfig{}, false, nil
	}
	if err != nil {
		return domain.StationConfig{}, false, err
	}
	return mapSettingsDocument(doc), true, nil
}

func (r *SettingsRepository) UpsertSettings(ctx context.Context, cfg domain.StationConfig) error {
	doc := mapSettingsToDocument(cfg)
	doc.UpdatedAt = r.now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": StationSettingsID}, doc, options.Replace().SetUpsert(true))
	return err
}

func mapSettingsDocument(doc SettingsDocument) domain.StationConfig {
	categories := make([]domain.RatingCategory, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		categories = append(categories, domain.RatingCategory{ID: c.ID, Label: c.Label, Question: c.Question})
	}
	faceID := true
	if doc.FaceIDEnabled != nil {
		faceID = *doc.FaceIDEnabled
	}
	return domain.StationConfig{
		LogoURL: doc.LogoURL,
		Background: domain.Background{
			ImageURL: doc.Background.ImageURL,
			Zoom:     doc.Background.Zoom,
			OffsetX:  doc.Background.OffsetX,
			OffsetY:  doc.Background.OffsetY,
			Blur:     doc.Background.Blur,
		},
		Categories:    categories,
		FaceIDEnabled: faceID,
		Suggestions:   append([]string(nil), doc.Suggestions...),
	}
}

func mapSettingsToDocument(cfg domain.StationConfig) SettingsDocument {
	categories := make([]CategoryDocument, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories = append(categories, CategoryDocument{ID: c.ID, Label: c.Label, Question: c.Question})
	}
	faceID := cfg.FaceIDEnabled
	return SettingsDocument{
		ID:      StationSettingsID,
		LogoURL: cfg.LogoURL,
		Background: BackgroundDocument{
			ImageURL: cfg.Background.ImageURL,
			Zoom:     cfg.Background.Zoom,
			OffsetX:  cfg.Background.OffsetX,
			OffsetY:  cfg.Background.OffsetY,
			Blur:     cfg.Background.Blur,
		},
		Categories:    categories,
		FaceIDEnabled: &faceID,
		Suggestions:   append([]string(nil), cfg.Suggestions...),
	}
}
