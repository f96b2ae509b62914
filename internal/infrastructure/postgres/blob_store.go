package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
)

// BlobStore keeps photos in a bytea table and serves them under /media.
type BlobStore struct {
	db      *sql.DB
	baseURL string
}

func NewBlobStore(db *sql.DB, baseURL string) *BlobStore {
	return &BlobStore{db: db, baseURL: baseURL}
}

func (s *BlobStore) UploadBlob(ctx context.Context, bucket, filename, contentType string, data []byte) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (bucket, filename, content_type, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT (bucket, filename) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data`,
		bucket, filename, contentType, data)
	if err != nil {
		return "", err
	}
	return application.MediaURL(s.baseURL, bucket, filename), nil
}

func (s *BlobStore) OpenBlob(ctx context.Context, bucket, filename string) (*application.Blob, error) {
	var contentType string
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT content_type, data FROM blobs WHERE bucket = $1 AND filename = $2`, bucket, filename).
		Scan(&contentType, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, application.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &application.Blob{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}
