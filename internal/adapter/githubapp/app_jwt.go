package githubapp

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const (
	// GitHub rejects app JWTs valid for more than 10 minutes; iat is
	// backdated to absorb clock drift between us and the API.
	jwtBackdate = 60 * time.Second
	jwtLifetime = 540 * time.Second
	jwtRefresh  = time.Minute
)

// AppTokenSource mints RS256 app JWTs and reuses one until shortly before it expires.
type AppTokenSource struct {
	appID int64
	key   any
	clock clockwork.Clock

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewAppTokenSource(appID int64, privateKeyPEM []byte, clock clockwork.Clock) (*AppTokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GitHub App private key: %w", err)
	}
	return &AppTokenSource{appID: appID, key: key, clock: clock}, nil
}

func (s *AppTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.token != "" && now.Before(s.expiresAt.Add(-jwtRefresh)) {
		return s.token, nil
	}

	expiresAt := now.Add(jwtLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtBackdate)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign app JWT: %w", err)
	}

	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}
