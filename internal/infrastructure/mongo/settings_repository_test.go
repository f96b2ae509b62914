package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestSettingsRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "kiosk.settings", mtest.FirstBatch))

		_, found, err := NewSettingsRepository(mt.DB, "settings").GetSettings(context.Background())

		require.NoError(mt, err)
		assert.False(mt, found)
	})

	mt.Run("stored document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "kiosk.settings", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: StationSettingsID},
			{Key: "logo_url", Value: "https://media.test/logo.png"},
			{Key: "background", Value: bson.D{{Key: "zoom", Value: 1.5}}},
			{Key: "categories", Value: bson.A{bson.D{{Key: "id", Value: "food"}, {Key: "label", Value: "Food"}}}},
		}))

		cfg, found, err := NewSettingsRepository(mt.DB, "settings").GetSettings(context.Background())

		require.NoError(mt, err)
		assert.True(mt, found)
		assert.Equal(mt, "https://media.test/logo.png", cfg.LogoURL)
		assert.Equal(mt, 1.5, cfg.Background.Zoom)
		assert.True(mt, cfg.FaceIDEnabled, "absent flag defaults to enabled")
		require.Len(mt, cfg.Categories, 1)
		assert.Equal(mt, "food", cfg.Categories[0].ID)
	})

	mt.Run("upsert", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		err := NewSettingsRepository(mt.DB, "settings").UpsertSettings(context.Background(), mapSettingsDocument(SettingsDocument{}))

		assert.NoError(mt, err)
	})
}
