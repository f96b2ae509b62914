package application

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccess(clk clock.Clock) AccessService {
	return NewAccessService(AccessConfig{
		Codes:  []string{"1111", " 2222 ", ""},
		Secret: []byte("test-secret"),
		Issuer: "haraj-kiosk",
		TTL:    time.Hour,
		Clock:  clk,
	})
}

func TestAccessLoginIssuesVerifiableToken(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Now())
	access := newTestAccess(clk)

	token, err := access.Login(context.Background(), "2222")
	require.NoError(t, err)

	claims, err := access.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "station-2", claims.Subject)
	assert.Equal(t, "station-2", claims.Station)
	assert.Equal(t, "haraj-kiosk", claims.Issuer)
}

func TestAccessLoginRejectsUnknownCode(t *testing.T) {
	access := newTestAccess(nil)

	_, err := access.Login(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrInvalidAccessCode)
	_, err = access.Login(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidAccessCode)
}

func TestAccessNotConfigured(t *testing.T) {
	access := NewAccessService(AccessConfig{Secret: []byte("s")})
	_, err := access.Login(context.Background(), "1111")
	assert.ErrorIs(t, err, ErrAccessNotConfigured)

	access = NewAccessService(AccessConfig{Codes: []string{"1111"}})
	_, err = access.Login(context.Background(), "1111")
	assert.ErrorIs(t, err, ErrAccessNotConfigured)
}

func TestAccessTokenExpires(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Now())
	access := newTestAccess(clk)

	token, err := access.Login(context.Background(), "1111")
	require.NoError(t, err)

	clk.Add(2 * time.Hour)
	_, err = access.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessRejectsForeignTokens(t *testing.T) {
	access := newTestAccess(nil)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "station-1",
			Issuer:    "haraj-kiosk",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = access.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "station-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = access.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = access.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
