package application

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// MaxCategories bounds the wizard length.
const MaxCategories = 20

type settingsService struct {
	repo kioskapp.SettingsGateway
	sink SettingsSink
}

// NewSettingsService wires station settings administration. sink may be nil.
func NewSettingsService(repo kioskapp.SettingsGateway, sink SettingsSink) SettingsService {
	return &settingsService{repo: repo, sink: sink}
}

func (s *settingsService) Get(ctx context.Context) (domain.StationConfig, error) {
	cfg, found, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.StationConfig{}, err
	}
	if !found {
		return domain.DefaultStationConfig(), nil
	}
	return cfg.Normalize(), nil
}

func (s *settingsService) Update(ctx context.Context, cmd UpdateSettingsCommand) (domain.StationConfig, error) {
	if err := validateSettings(cmd); err != nil {
		return domain.StationConfig{}, err
	}
	cfg := domain.StationConfig{
		LogoURL:       cmd.LogoURL,
		Background:    cmd.Background,
		Categories:    append([]domain.RatingCategory(nil), cmd.Categories...),
		FaceIDEnabled: cmd.FaceIDEnabled,
		Suggestions:   append([]string(nil), cmd.Suggestions...),
	}.Normalize()

	if err := s.repo.UpsertSettings(ctx, cfg); err != nil {
		return domain.StationConfig{}, err
	}
	if s.sink != nil {
		cfg = s.sink.Replace(cfg)
	}
	return cfg, nil
}

func validateSettings(cmd UpdateSettingsCommand) error {
	if len(cmd.Categories) > MaxCategories {
		return fmt.Errorf("%w: at most %d categories", ErrValidation, MaxCategories)
	}
	for _, raw := range []string{cmd.LogoURL, cmd.Background.ImageURL} {
		if err := validateOptionalURL(raw); err != nil {
			return err
		}
	}
	if cmd.Background.Zoom < 0 || cmd.Background.Zoom > 5 {
		return fmt.Errorf("%w: background zoom must be between 0 and 5", ErrValidation)
	}
	return nil
}

func validateOptionalURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrValidation, raw)
	}
	return nil
}
