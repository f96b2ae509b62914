package application

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// MaxPhotoBytes bounds a single captured frame.
const MaxPhotoBytes = 8 << 20

var (
	ErrPhotoEmpty    = errors.New("photo is empty")
	ErrPhotoTooLarge = errors.New("photo exceeds size limit")
	ErrPhotoType     = errors.New("photo must be an image")
)

// Photo is a captured frame held in the draft until upload.
type Photo struct {
	Data        []byte
	ContentType string
}

// Empty reports whether no frame was captured.
func (p Photo) Empty() bool {
	return len(p.Data) == 0
}

// Ext returns the file extension matching the content type.
func (p Photo) Ext() string {
	switch p.ContentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// NewPhoto validates raw image bytes, sniffing the content type.
func NewPhoto(data []byte) (Photo, error) {
	if len(data) == 0 {
		return Photo{}, ErrPhotoEmpty
	}
	if len(data) > MaxPhotoBytes {
		return Photo{}, ErrPhotoTooLarge
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return Photo{}, ErrPhotoType
	}
	return Photo{Data: data, ContentType: contentType}, nil
}

// DecodeDataURL parses a "data:image/jpeg;base64,..." capture as sent by canvas.toDataURL.
// A bare base64 string without the data: prefix is accepted as well.
func DecodeDataURL(raw string) (Photo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Photo{}, ErrPhotoEmpty
	}
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return Photo{}, ErrPhotoType
		}
		header := raw[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return Photo{}, ErrPhotoType
		}
		payload = raw[comma+1:]
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxPhotoBytes+3 {
		return Photo{}, ErrPhotoTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Photo{}, ErrPhotoType
	}
	return NewPhoto(data)
}
