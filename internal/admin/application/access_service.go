package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of an admin token.
const DefaultTokenTTL = 8 * time.Hour

// AccessConfig configures the station login.
type AccessConfig struct {
	Codes  []string
	Secret []byte
	Issuer string
	TTL    time.Duration
	Clock  clock.Clock
}

// AccessClaims are the claims carried by an admin token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Station string `json:"station,omitempty"`
}

type accessService struct {
	codes  []string
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewAccessService(cfg AccessConfig) AccessService {
	codes := make([]string, 0, len(cfg.Codes))
	for _, code := range cfg.Codes {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &accessService{codes: codes, secret: cfg.Secret, issuer: cfg.Issuer, ttl: cfg.TTL, clock: cfg.Clock}
}

// Login compares code against every configured code in constant time and signs a token on match.
func (s *accessService) Login(_ context.Context, code string) (string, error) {
	if len(s.codes) == 0 || len(s.secret) == 0 {
		return "", ErrAccessNotConfigured
	}
	code = strings.TrimSpace(code)
	matched := -1
	for i, candidate := range s.codes {
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 && matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return "", ErrInvalidAccessCode
	}

	now := s.clock.Now()
	station := fmt.Sprintf("station-%d", matched+1)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   station,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Station: station,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses an HS256 token issued by Login.
func (s *accessService) Verify(tokenString string) (*AccessClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrAccessNotConfigured
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
