package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// reviewRow is one row serialized with to_jsonb so that columns missing from an older
// schema decode as zero values instead of failing the scan.
type reviewRow struct {
	ID           string          `json:"id"`
	SerialNumber *int64          `json:"serial_number"`
	Name         string          `json:"name"`
	Photo        *string         `json:"photo"`
	FaceID       *string         `json:"face_id"`
	Ratings      json.RawMessage `json:"ratings"`
	Rating       *float64        `json:"rating"`
	Comment      *string         `json:"comment"`
	Timestamp    json.RawMessage `json:"timestamp"`
	CreatedAt    *time.Time      `json:"created_at"`
}

// ReviewRepository implements application.ReviewGateway on PostgreSQL.
type ReviewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewReviewRepository(db *sql.DB, logger *zap.Logger) *ReviewRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewRepository{db: db, logger: logger}
}

func (r *ReviewRepository) ListReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT to_jsonb(r) FROM reviews r ORDER BY r.timestamp DESC, r.serial_number DESC LIMIT $1`, limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		review, err := decodeReviewRow(raw)
		if err != nil {
			r.logger.Warn("skipping undecodable review row", zap.Error(err))
			continue
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// InsertReview writes face_id only when set so a schema without that column still accepts guest rows.
func (r *ReviewRepository) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	ratings, err := json.Marshal(review.Ratings)
	if err != nil {
		return domain.Review{}, err
	}
	columns := []string{"name", "photo", "ratings", "comment", "timestamp"}
	args := []any{strings.TrimSpace(review.Name), review.Photo, string(ratings), strings.TrimSpace(review.Comment), review.Timestamp}
	if review.FaceID != "" {
		columns = append(columns, "face_id")
		args = append(args, review.FaceID)
	}
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	query := fmt.Sprintf(`INSERT INTO reviews (%s) VALUES (%s) RETURNING to_jsonb(reviews.*)`,
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return domain.Review{}, translateError(err)
	}
	return decodeReviewRow(raw)
}

func (r *ReviewRepository) UpdateReview(ctx context.Context, id string, patch domain.ReviewPatch) (domain.Review, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return domain.Review{}, translateError(sql.ErrNoRows)
	}
	sets := []string{"updated_at = now()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Comment != nil {
		add("comment", *patch.Comment)
	}
	if len(patch.Ratings) > 0 {
		ratings, err := json.Marshal(patch.Ratings)
		if err != nil {
			return domain.Review{}, err
		}
		add("ratings", string(ratings))
	}
	args = append(args, strings.TrimSpace(id))

	query := fmt.Sprintf(`UPDATE reviews SET %s WHERE id = $%d RETURNING to_jsonb(reviews.*)`, strings.Join(sets, ", "), len(args))
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return domain.Review{}, translateError(err)
	}
	return decodeReviewRow(raw)
}

func (r *ReviewRepository) DeleteReview(ctx context.Context, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return translateError(sql.ErrNoRows)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return translateError(sql.ErrNoRows)
	}
	return nil
}

func (r *ReviewRepository) DeleteAllReviews(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews`)
	if err != nil {
		return 0, translateError(err)
	}
	return result.RowsAffected()
}

func (r *ReviewRepository) FindReview(ctx context.Context, id string) (domain.Review, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return domain.Review{}, translateError(sql.ErrNoRows)
	}
	return r.findOne(ctx, `SELECT to_jsonb(r) FROM reviews r WHERE r.id = $1`, strings.TrimSpace(id))
}

func (r *ReviewRepository) FindBySerial(ctx context.Context, serial int64) (domain.Review, error) {
	return r.findOne(ctx, `SELECT to_jsonb(r) FROM reviews r WHERE r.serial_number = $1`, serial)
}

func (r *ReviewRepository) findOne(ctx context.Context, query string, arg any) (domain.Review, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&raw); err != nil {
		return domain.Review{}, translateError(err)
	}
	return decodeReviewRow(raw)
}

func decodeReviewRow(raw []byte) (domain.Review, error) {
	var row reviewRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return domain.Review{}, fmt.Errorf("decode review row: %w", err)
	}
	return domain.Review{
		ID:           row.ID,
		SerialNumber: row.SerialNumber,
		Name:         row.Name,
		Photo:        deref(row.Photo),
		FaceID:       deref(row.FaceID),
		Ratings:      decodeRatings(row.Ratings, row.Rating),
		Comment:      deref(row.Comment),
		Timestamp:    decodeTimestamp(row.Timestamp, row.CreatedAt),
	}, nil
}

// decodeRatings accepts a keyed object, a bare number, or a JSON string holding either.
func decodeRatings(raw json.RawMessage, legacy *float64) domain.Ratings {
	if len(raw) > 0 && string(raw) != "null" {
		var keyed map[string]float64
		if err := json.Unmarshal(raw, &keyed); err == nil {
			return domain.NormalizeRatings(keyed)
		}
		var flat float64
		if err := json.Unmarshal(raw, &flat); err == nil {
			return domain.RatingsFromLegacy(flat)
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && text != "" {
			return decodeRatings(json.RawMessage(text), legacy)
		}
	}
	if legacy != nil {
		return domain.RatingsFromLegacy(*legacy)
	}
	return domain.NormalizeRatings(nil)
}

// decodeTimestamp reads epoch milliseconds, or an ISO timestamp from schemas that used timestamptz.
func decodeTimestamp(raw json.RawMessage, createdAt *time.Time) int64 {
	if len(raw) > 0 && string(raw) != "null" {
		var ms int64
		if err := json.Unmarshal(raw, &ms); err == nil {
			return ms
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
				return t.UnixMilli()
			}
		}
	}
	if createdAt != nil {
		return createdAt.UnixMilli()
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
