package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

const (
	defaultTimeout = 5 * time.Second
	defaultUserID  = "kiosk"
	maxAttempts    = 3
)

// Config はメッセンジャーゲートウェイへの通知設定。
type Config struct {
	Endpoint           string
	Destination        string
	Timeout            time.Duration
	AdminReviewBaseURL string
	RetryWait          time.Duration
}

// Notifier は新しいレビューをメッセンジャーゲートウェイへ送る。
type Notifier struct {
	http           *resty.Client
	destination    string
	adminReviewURL string
	logger         *zap.Logger
}

var _ application.ReviewNotifier = (*Notifier)(nil)

// NewNotifier は Endpoint が空なら nil を返す。
func NewNotifier(cfg Config, logger *zap.Logger) *Notifier {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = 200 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetRetryCount(maxAttempts-1).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(4*wait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		http:           client,
		destination:    strings.TrimSpace(cfg.Destination),
		adminReviewURL: strings.TrimRight(strings.TrimSpace(cfg.AdminReviewBaseURL), "/"),
		logger:         logger,
	}
}

// NotifyReview は投稿されたレビューの要約を送信する。
func (n *Notifier) NotifyReview(ctx context.Context, review domain.Review) error {
	return n.send(ctx, identifier(review), BuildReviewMessage(n.adminReviewURL, review))
}

// BuildReviewMessage は通知本文を組み立てる。
func BuildReviewMessage(adminBaseURL string, review domain.Review) string {
	var builder strings.Builder
	name := strings.TrimSpace(review.Name)
	if name == "" {
		name = "A visitor"
	}
	builder.WriteString(fmt.Sprintf("**%s** left a new review.\n", name))
	if review.SerialNumber != nil {
		builder.WriteString(fmt.Sprintf("- Serial: #%d\n", *review.SerialNumber))
	}
	builder.WriteString(fmt.Sprintf("- Overall: %d / %d\n", review.Ratings.Overall(), domain.RatingMax))
	if comment := strings.TrimSpace(review.Comment); comment != "" {
		builder.WriteString(fmt.Sprintf("- Comment: %s\n", comment))
	}
	if review.ID != "" && adminBaseURL != "" {
		builder.WriteString(fmt.Sprintf("[Open in admin](%s/%s)\n", strings.TrimRight(adminBaseURL, "/"), review.ID))
	}
	return builder.String()
}

func identifier(review domain.Review) string {
	if review.ID != "" {
		return review.ID
	}
	return defaultUserID
}

func (n *Notifier) send(ctx context.Context, userID, text string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("userID is required")
	}
	payload := map[string]any{
		"userId": userID,
		"text":   text,
	}
	if n.destination != "" {
		payload["destination"] = n.destination
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("messenger request failed: %w", err)
	}
	if resp.IsError() {
		body := strings.TrimSpace(resp.String())
		if len(body) > 512 {
			body = body[:512]
		}
		return fmt.Errorf("messenger returned status=%d body=%s", resp.StatusCode(), body)
	}
	n.logger.Debug("review notification sent", zap.String("userId", userID))
	return nil
}
