package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// StationSettingsID keys the single settings row.
const StationSettingsID = "station"

type settingsPayload struct {
	LogoURL       string            `json:"logoUrl,omitempty"`
	Background    backgroundPayload `json:"background"`
	Categories    []categoryPayload `json:"categories,omitempty"`
	FaceIDEnabled *bool             `json:"faceIdEnabled,omitempty"`
	Suggestions   []string          `json:"suggestions,omitempty"`
}

type backgroundPayload struct {
	ImageURL string  `json:"imageUrl,omitempty"`
	Zoom     float64 `json:"zoom,omitempty"`
	OffsetX  float64 `json:"offsetX,omitempty"`
	OffsetY  float64 `json:"offsetY,omitempty"`
	Blur     float64 `json:"blur,omitempty"`
}

type categoryPayload struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Question string `json:"question,omitempty"`
}

// SettingsRepository implements application.SettingsGateway on a jsonb row.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) GetSettings(ctx context.Context) (domain.StationConfig, bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT config FROM station_settings WHERE id = $1`, StationSettingsID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || pqCode(err) == undefinedTable {
		return domain.StationConfig{}, false, nil
	}
	if err != nil {
		return domain.StationConfig{}, false, err
	}

	var payload settingsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.StationConfig{}, false, fmt.Errorf("decode station settings: %w", err)
	}
	return payload.toDomain(), true, nil
}

func (r *SettingsRepository) UpsertSettings(ctx context.Context, cfg domain.StationConfig) error {
	raw, err := json.Marshal(settingsPayloadFrom(cfg))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO station_settings (id, config, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`,
		StationSettingsID, string(raw))
	return err
}

func (p settingsPayload) toDomain() domain.StationConfig {
	categories := make([]domain.RatingCategory, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, domain.RatingCategory{ID: c.ID, Label: c.Label, Question: c.Question})
	}
	faceID := true
	if p.FaceIDEnabled != nil {
		faceID = *p.FaceIDEnabled
	}
	return domain.StationConfig{
		LogoURL:       p.LogoURL,
		Background:    domain.Background(p.Background),
		Categories:    categories,
		FaceIDEnabled: faceID,
		Suggestions:   p.Suggestions,
	}
}

func settingsPayloadFrom(cfg domain.StationConfig) settingsPayload {
	categories := make([]categoryPayload, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories = append(categories, categoryPayload{ID: c.ID, Label: c.Label, Question: c.Question})
	}
	faceID := cfg.FaceIDEnabled
	return settingsPayload{
		LogoURL:       cfg.LogoURL,
		Background:    backgroundPayload(cfg.Background),
		Categories:    categories,
		FaceIDEnabled: &faceID,
		Suggestions:   cfg.Suggestions,
	}
}
