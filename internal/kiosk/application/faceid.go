package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

const (
	DefaultFaceIDAttempts    = 6
	DefaultFaceIDInterval    = 2 * time.Second
	DefaultFaceIDRecentCount = 5
	// DefaultFaceIDSlack covers upload and reindex on top of the polling budget.
	DefaultFaceIDSlack = 4 * time.Second
)

// FaceIdentifierConfig tunes the polling budget.
type FaceIdentifierConfig struct {
	Attempts    int
	Interval    time.Duration
	RecentCount int
	Slack       time.Duration
}

// FaceIdentifier resolves the face identity of a freshly captured photo.
// It never fails: any error degrades to a sentinel identity.
type FaceIdentifier struct {
	gateway FaceGateway
	clock   clock.Clock
	logger  *zap.Logger
	cfg     FaceIdentifierConfig
}

// NewFaceIdentifier builds an identifier. A nil gateway always yields the guest identity.
func NewFaceIdentifier(gateway FaceGateway, clk clock.Clock, logger *zap.Logger, cfg FaceIdentifierConfig) *FaceIdentifier {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultFaceIDAttempts
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.RecentCount <= 0 {
		cfg.RecentCount = DefaultFaceIDRecentCount
	}
	if cfg.Slack <= 0 {
		cfg.Slack = DefaultFaceIDSlack
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaceIdentifier{gateway: gateway, clock: clk, logger: logger, cfg: cfg}
}

// Configured reports whether a recognition gateway is wired.
func (f *FaceIdentifier) Configured() bool {
	return f != nil && f.gateway != nil
}

// Budget is the worst-case polling wait.
func (f *FaceIdentifier) Budget() time.Duration {
	return time.Duration(f.cfg.Attempts) * f.cfg.Interval
}

// Deadline is the hard limit for one Identify call: Budget plus Slack.
func (f *FaceIdentifier) Deadline() time.Duration {
	return f.Budget() + f.cfg.Slack
}

// Identify uploads the photo, forces a reindex and polls recent items for a face marker.
// Attempts run with Attempts-1 waits in between, so the loop never sleeps past Budget.
// The whole call is bounded by Deadline; running out of it yields the guest fallback.
func (f *FaceIdentifier) Identify(ctx context.Context, photo []byte, filename string) string {
	if !f.Configured() || len(photo) == 0 {
		return domain.GuestFaceID
	}

	parent := ctx
	ctx, cancel := f.clock.WithTimeout(parent, f.Deadline())
	defer cancel()

	if err := f.gateway.UploadImage(ctx, photo, filename); err != nil {
		f.logger.Warn("face upload failed", zap.String("filename", filename), zap.Error(err))
		return f.degrade(parent, ctx)
	}
	if err := f.gateway.TriggerReindex(ctx); err != nil {
		f.logger.Warn("face reindex failed", zap.Error(err))
		return f.degrade(parent, ctx)
	}

	for attempt := 1; attempt <= f.cfg.Attempts; attempt++ {
		if attempt > 1 {
			if err := f.wait(ctx); err != nil {
				f.logger.Warn("face polling cancelled", zap.Int("attempt", attempt), zap.Error(err))
				return f.degrade(parent, ctx)
			}
		}

		items, err := f.gateway.ListRecentItems(ctx, f.cfg.RecentCount)
		if err != nil {
			f.logger.Warn("face polling failed", zap.Int("attempt", attempt), zap.Error(err))
			return f.degrade(parent, ctx)
		}
		if id, ok := matchIdentity(items, filename); ok {
			f.logger.Info("face identified", zap.Int("attempt", attempt), zap.String("faceId", id))
			return id
		}
	}

	fallback := domain.NewGuestFallbackID(f.clock.Now())
	f.logger.Info("face polling exhausted", zap.Int("attempts", f.cfg.Attempts), zap.String("faceId", fallback))
	return fallback
}

// degrade maps a failed step to a sentinel. Only the identifier's own deadline
// resolves to the guest fallback; gateway errors and caller cancellation stay ERR_.
func (f *FaceIdentifier) degrade(parent, ctx context.Context) string {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		fallback := domain.NewGuestFallbackID(f.clock.Now())
		f.logger.Info("face identification deadline reached", zap.Duration("deadline", f.Deadline()), zap.String("faceId", fallback))
		return fallback
	}
	return domain.NewErrorFaceID(f.clock.Now())
}

func (f *FaceIdentifier) wait(ctx context.Context) error {
	if f.cfg.Interval == 0 {
		return ctx.Err()
	}
	timer := f.clock.Timer(f.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// matchIdentity prefers the item imported under filename, then any item carrying a marker.
func matchIdentity(items []domain.FaceItem, filename string) (string, bool) {
	base := strings.TrimSuffix(filename, extOf(filename))
	if base != "" {
		for _, item := range items {
			if !strings.Contains(item.OriginalName, base) {
				continue
			}
			if id, ok := item.FirstIdentity(); ok {
				return id, true
			}
		}
	}
	for _, item := range items {
		if id, ok := item.FirstIdentity(); ok {
			return id, true
		}
	}
	return "", false
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
