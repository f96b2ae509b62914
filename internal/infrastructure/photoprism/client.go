package photoprism

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

const (
	authHeader         = "X-Auth-Token"
	defaultUploadPath  = "kiosk"
	defaultPreview     = "public"
	defaultTimeout     = 15 * time.Second
	thumbnailSize      = "fit_2048"
	subjectUIDPrefix   = 'j'
	subjectUIDLength   = 16
	defaultRatePerSecs = 5
)

// Config は PhotoPrism 接続設定。
type Config struct {
	BaseURL      string
	APIKey       string
	UploadPath   string
	PreviewToken string
	RatePerSec   int
	Timeout      time.Duration
}

// Client は PhotoPrism REST API を FaceGateway として扱うクライアント。
type Client struct {
	http    *resty.Client
	limiter ratelimit.Limiter
	logger  *zap.Logger

	baseURL      string
	uploadPath   string
	previewToken string
}

var _ application.FaceGateway = (*Client)(nil)

// NewClient は設定から Client を生成する。APIKey が空なら nil を返す。
func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	uploadPath := strings.Trim(strings.TrimSpace(cfg.UploadPath), "/")
	if uploadPath == "" {
		uploadPath = defaultUploadPath
	}
	preview := strings.TrimSpace(cfg.PreviewToken)
	if preview == "" {
		preview = defaultPreview
	}

	var limiter ratelimit.Limiter
	switch {
	case cfg.RatePerSec < 0:
		limiter = ratelimit.NewUnlimited()
	case cfg.RatePerSec == 0:
		limiter = ratelimit.New(defaultRatePerSecs)
	default:
		limiter = ratelimit.New(cfg.RatePerSec)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetRetryResetReaders(true).
		SetHeader(authHeader, strings.TrimSpace(cfg.APIKey)).
		SetHeader("Accept", "application/json")

	return &Client{
		http:         client,
		limiter:      limiter,
		logger:       logger,
		baseURL:      baseURL,
		uploadPath:   uploadPath,
		previewToken: preview,
	}
}

// UploadImage は画像をアップロードし、アップロード領域からライブラリへ取り込む。
func (c *Client) UploadImage(ctx context.Context, data []byte, filename string) error {
	if len(data) == 0 {
		return fmt.Errorf("photoprism upload: empty image")
	}
	if strings.TrimSpace(filename) == "" {
		filename = "capture.jpg"
	}

	c.limiter.Take()
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("files", filename, bytes.NewReader(data)).
		Post("/api/v1/upload/" + url.PathEscape(c.uploadPath))
	if err := checkResponse("upload", resp, err); err != nil {
		return err
	}

	c.limiter.Take()
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"move": true}).
		Post("/api/v1/import/upload/" + url.PathEscape(c.uploadPath))
	if err := checkResponse("import", resp, err); err != nil {
		return err
	}

	c.logger.Debug("photoprism upload imported", zap.String("filename", filename), zap.Int("bytes", len(data)))
	return nil
}

// TriggerReindex はライブラリ全体の再インデックスを要求し、顔クラスタリングを促す。
func (c *Client) TriggerReindex(ctx context.Context) error {
	c.limiter.Take()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"path": "/", "rescan": false, "cleanup": false}).
		Post("/api/v1/index")
	return checkResponse("index", resp, err)
}

// ListRecentItems は新しい順に count 件の写真を取得する。
func (c *Client) ListRecentItems(ctx context.Context, count int) ([]domain.FaceItem, error) {
	return c.searchPhotos(ctx, "recent", map[string]string{
		"count":  strconv.Itoa(clampCount(count)),
		"order":  "newest",
		"merged": "true",
	})
}

// QueryByClusterID は同じ顔クラスタ(または人物)に属する写真を取得する。
func (c *Client) QueryByClusterID(ctx context.Context, clusterID string, count int) ([]domain.FaceItem, error) {
	clusterID = strings.TrimSpace(clusterID)
	if clusterID == "" {
		return nil, nil
	}
	return c.searchPhotos(ctx, "cluster", map[string]string{
		"q":      clusterFilter(clusterID),
		"count":  strconv.Itoa(clampCount(count)),
		"order":  "newest",
		"merged": "true",
	})
}

// ThumbnailURL はプレビュートークン付きのサムネイル URL を返す。
func (c *Client) ThumbnailURL(hash string) string {
	if hash == "" {
		return ""
	}
	return c.baseURL + "/api/v1/t/" + url.PathEscape(hash) + "/" + url.PathEscape(c.previewToken) + "/" + thumbnailSize
}

func (c *Client) searchPhotos(ctx context.Context, op string, params map[string]string) ([]domain.FaceItem, error) {
	var photos []photoPayload

	c.limiter.Take()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&photos).
		Get("/api/v1/photos")
	if err := checkResponse(op, resp, err); err != nil {
		return nil, err
	}

	items := make([]domain.FaceItem, 0, len(photos))
	for _, p := range photos {
		items = append(items, p.toDomain(c.ThumbnailURL))
	}
	return items, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("photoprism %s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("photoprism %s: unexpected status %d", op, resp.StatusCode())
	}
	return nil
}

func clampCount(count int) int {
	switch {
	case count <= 0:
		return 1
	case count > 1000:
		return 1000
	default:
		return count
	}
}

// clusterFilter は人物 UID なら subject フィルタ、それ以外は face フィルタを組み立てる。
func clusterFilter(id string) string {
	if len(id) == subjectUIDLength && id[0] == subjectUIDPrefix {
		return "subject:" + id
	}
	return "face:" + id
}
