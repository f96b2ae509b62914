package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
)

// BlobStore は GridFS バケットに写真を保存し、/media 配下の公開 URL を返す。
// デッドラインはバケット単位で設定されるため、呼び出しごとにバケットを生成する。
type BlobStore struct {
	db      *mongo.Database
	baseURL string
}

// NewBlobStore は公開 URL の基点 baseURL (末尾スラッシュなし) を受け取る。
func NewBlobStore(db *mongo.Database, baseURL string) *BlobStore {
	return &BlobStore{db: db, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (s *BlobStore) bucket(name string) (*gridfs.Bucket, error) {
	return gridfs.NewBucket(s.db, options.GridFSBucket().SetName(name))
}

// UploadBlob は data を bucket/filename として保存する。
func (s *BlobStore) UploadBlob(ctx context.Context, bucketName, filename, contentType string, data []byte) (string, error) {
	b, err := s.bucket(bucketName)
	if err != nil {
		return "", err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := b.SetWriteDeadline(deadline); err != nil {
			return "", err
		}
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := b.UploadFromStream(filename, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("gridfs upload %s/%s: %w", bucketName, filename, err)
	}
	return application.MediaURL(s.baseURL, bucketName, filename), nil
}

// OpenBlob は保存済みファイルのストリームを返す。呼び出し側で Close すること。
func (s *BlobStore) OpenBlob(ctx context.Context, bucketName, filename string) (*application.Blob, error) {
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	stream, err := b.OpenDownloadStreamByName(filename)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, application.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}

	file := stream.GetFile()
	contentType := "application/octet-stream"
	if len(file.Metadata) > 0 {
		if value, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && value != "" {
			contentType = value
		}
	}
	return &application.Blob{ReadCloser: stream, ContentType: contentType, Size: file.Length}, nil
}
