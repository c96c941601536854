package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which of the two token families a TokenManager call targets.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims captures the validated claims of an issued token.
type Claims struct {
	UserID    string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the internal claims type used for JWT signing and parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// TokenManager issues and verifies HS256 JWTs. Access and refresh tokens
// are signed with distinct secrets, so a token of one kind can never verify
// as the other even if the "kind" claim were forged.
type TokenManager struct {
	cfg Config
}

// NewTokenManager constructs a TokenManager after validating the config.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{cfg: cfg}, nil
}

func (m *TokenManager) secretAndTTL(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return m.cfg.AccessSecret, m.cfg.AccessTTL, nil
	case KindRefresh:
		return m.cfg.RefreshSecret, m.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown token kind %q", ErrConfig, kind)
	}
}

// Issue signs a token of the given kind for userID.
func (m *TokenManager) Issue(kind Kind, userID string, now time.Time) (token string, expiresAt time.Time, err error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty user id", ErrSigning)
	}

	secret, ttl, err := m.secretAndTTL(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	now = now.UTC()
	expiresAt = now.Add(ttl)

	// The jti claim makes every issued token unique, even two tokens of the
	// same kind minted for the same user within one second. Refresh rotation
	// relies on this: the stored hash must change on every rotation.
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind: string(kind),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token of the expected kind.
//
// Expiry is checked manually against now with the configured skew so callers
// control the clock; the library's own time validation is disabled.
func (m *TokenManager) Verify(token string, kind Kind, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 4096 {
		return Claims{}, ErrInvalidToken
	}

	secret, _, err := m.secretAndTTL(kind)
	if err != nil {
		return Claims{}, err
	}

	var parsed tokenClaims
	_, err = jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	if parsed.Kind != string(kind) {
		return Claims{}, ErrInvalidToken
	}
	if parsed.Issuer != m.cfg.Issuer {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, ErrInvalidToken
	}
	if parsed.ExpiresAt == nil || parsed.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}

	now = now.UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.Add(m.cfg.ClockSkew).After(now) {
		return Claims{}, ErrTokenExpired
	}
	iat := parsed.IssuedAt.Time.UTC()
	if iat.After(now.Add(m.cfg.ClockSkew)) {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		UserID:    parsed.Subject,
		Kind:      kind,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}
