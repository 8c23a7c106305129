package jwt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"faculty-appraisal/config"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenRevoked = errors.New("token revoked")
)

// Principal is the authenticated identity carried by a token.
type Principal struct {
	Subject    string `json:"user_id"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"dept"`
}

// Claims JWT payload.
type Claims struct {
	Principal
	jwtv5.RegisteredClaims
}

// Blacklist holds revoked tokens until their natural expiry.
// The in-memory implementation serves a single process; pkg/redis shares it across instances.
type Blacklist interface {
	BlacklistToken(ctx context.Context, key string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, key string) (bool, error)
}

// Manager issues, verifies, refreshes and revokes bearer tokens.
type Manager struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	blacklist Blacklist
	now       func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. A nil blacklist falls back to process memory.
func NewManager(cfg *config.AuthConfig, blacklist Blacklist, opts ...Option) *Manager {
	m := &Manager{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		blacklist: blacklist,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.blacklist == nil {
		m.blacklist = NewMemoryBlacklist(m.now)
	}
	return m
}

// TTL token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for p expiring after the configured TTL.
func (m *Manager) Issue(p Principal) (string, error) {
	now := m.now()
	claims := Claims{
		Principal: p,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   p.Subject,
			Issuer:    m.issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the token's claims. The revocation list is consulted before
// the signature so a logged-out token is refused without parsing.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	revoked, err := m.blacklist.IsBlacklisted(ctx, revocationKey(tokenString))
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return m.parse(tokenString)
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	},
		jwtv5.WithTimeFunc(m.now),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Principal.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Revoke blacklists tokenString for the rest of its lifetime. Revoking twice,
// or revoking an unparseable token, is harmless.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	ttl := m.ttl
	var claims Claims
	if _, _, err := jwtv5.NewParser().ParseUnverified(tokenString, &claims); err == nil && claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := m.blacklist.BlacklistToken(ctx, revocationKey(tokenString), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Refresh issues a new token for the same principal if tokenString still verifies.
func (m *Manager) Refresh(ctx context.Context, tokenString string) (string, error) {
	claims, err := m.Verify(ctx, tokenString)
	if err != nil {
		return "", err
	}
	return m.Issue(claims.Principal)
}

// revocationKey keeps raw tokens out of the store.
func revocationKey(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}
