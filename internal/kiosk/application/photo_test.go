package application

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestNewPhotoSniffsContentType(t *testing.T) {
	photo, err := NewPhoto(jpegPhoto().Data)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", photo.ContentType)
	assert.Equal(t, "jpg", photo.Ext())

	photo, err = NewPhoto(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "png", photo.Ext())
}

func TestNewPhotoRejectsBadInput(t *testing.T) {
	_, err := NewPhoto(nil)
	assert.ErrorIs(t, err, ErrPhotoEmpty)

	_, err = NewPhoto([]byte("plain text, not an image"))
	assert.ErrorIs(t, err, ErrPhotoType)

	_, err = NewPhoto(make([]byte, MaxPhotoBytes+1))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
}

func TestDecodeDataURL(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(jpegPhoto().Data)

	photo, err := DecodeDataURL("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, jpegPhoto().Data, photo.Data)

	photo, err = DecodeDataURL(encoded)
	require.NoError(t, err)
	assert.False(t, photo.Empty())

	_, err = DecodeDataURL("")
	assert.ErrorIs(t, err, ErrPhotoEmpty)
	_, err = DecodeDataURL("data:image/jpeg," + encoded)
	assert.ErrorIs(t, err, ErrPhotoType)
	_, err = DecodeDataURL("data:image/jpeg;base64,@@@")
	assert.ErrorIs(t, err, ErrPhotoType)
	_, err = DecodeDataURL(strings.Repeat("A", (MaxPhotoBytes/3+8)*4))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
}
