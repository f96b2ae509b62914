package application

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// StationSettings holds the last good StationConfig and refreshes it in the background.
type StationSettings struct {
	gateway SettingsGateway
	clock   clock.Clock
	logger  *zap.Logger

	mu       sync.RWMutex
	current  domain.StationConfig
	loaded   bool
	lastErr  error
	watchers []func(domain.StationConfig)
}

// NewStationSettings returns an unloaded settings source.
func NewStationSettings(gateway SettingsGateway, clk clock.Clock, logger *zap.Logger) *StationSettings {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StationSettings{gateway: gateway, clock: clk, logger: logger}
}

// Load fetches the settings row. A missing row yields the default configuration.
// A failure keeps the previous configuration and, on first load, leaves the source unloaded.
func (s *StationSettings) Load(ctx context.Context) error {
	cfg, found, err := s.gateway.GetSettings(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	if !found {
		cfg = domain.DefaultStationConfig()
	}
	s.Replace(cfg)
	return nil
}

// Replace installs cfg after normalization and notifies watchers.
func (s *StationSettings) Replace(cfg domain.StationConfig) domain.StationConfig {
	cfg = cfg.Normalize()
	s.mu.Lock()
	s.current = cfg
	s.loaded = true
	s.lastErr = nil
	watchers := append([]func(domain.StationConfig){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(cfg)
	}
	return cfg
}

// Current returns the configuration and whether it was ever loaded.
func (s *StationSettings) Current() (domain.StationConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

// LastError returns the last refresh failure, nil after a success.
func (s *StationSettings) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Watch registers fn for every successful replacement.
func (s *StationSettings) Watch(fn func(domain.StationConfig)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

// Run refreshes every interval until ctx is done.
func (s *StationSettings) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.Load(loadCtx); err != nil {
				s.logger.Warn("station settings refresh failed", zap.Error(err))
			}
			cancel()
		}
	}
}
