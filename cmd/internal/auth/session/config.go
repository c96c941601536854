package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"vidtube/cmd/security/token"
)

// Config defines all runtime configuration for the session subsystem.
//
// It controls token TTLs, clock skew tolerance, the token issuer, and the
// two HS256 signing secrets. Access and refresh secrets must differ so a
// refresh token can never be replayed as an access token.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshTTL is the lifetime of refresh tokens.
	RefreshTTL time.Duration

	// ClockSkew is the allowed time skew during token validation.
	ClockSkew time.Duration

	// AccessSecret and RefreshSecret are the HS256 signing keys.
	AccessSecret  []byte
	RefreshSecret []byte

	// RefreshHasher digests refresh tokens for storage. Its key is
	// resolved once at load; the zero value is the unkeyed dev fallback.
	RefreshHasher token.Hasher
}

// sessionEnv holds raw env values before post-parse validation.
type sessionEnv struct {
	Issuer        string        `env:"VIDTUBE_AUTH_ISSUER" envDefault:"vidtube"`
	AccessTTL     time.Duration `env:"VIDTUBE_AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"VIDTUBE_AUTH_REFRESH_TTL" envDefault:"168h"`
	ClockSkew     time.Duration `env:"VIDTUBE_AUTH_CLOCK_SKEW" envDefault:"30s"`
	AccessSecret  string        `env:"VIDTUBE_ACCESS_TOKEN_SECRET"`
	RefreshSecret string        `env:"VIDTUBE_REFRESH_TOKEN_SECRET"`
}

const minSecretBytes = 32

// DefaultConfig returns the TTL and skew defaults without secrets.
// Secrets must be supplied before the config is usable.
func DefaultConfig() Config {
	return Config{
		Issuer:     "vidtube",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ClockSkew:  30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - VIDTUBE_ACCESS_TOKEN_SECRET (>= 32 bytes)
//   - VIDTUBE_REFRESH_TOKEN_SECRET (>= 32 bytes, distinct from access)
//
// Optional (Go duration strings):
//   - VIDTUBE_AUTH_ISSUER
//   - VIDTUBE_AUTH_ACCESS_TTL
//   - VIDTUBE_AUTH_REFRESH_TTL
//   - VIDTUBE_AUTH_CLOCK_SKEW
//   - VIDTUBE_TOKEN_HMAC_KEY (>= 32 bytes when set)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	var raw sessionEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", ErrConfig, err)
	}

	hasher, err := token.HasherFromEnv(minSecretBytes)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	cfg := Config{
		Issuer:        strings.TrimSpace(raw.Issuer),
		AccessTTL:     raw.AccessTTL,
		RefreshTTL:    raw.RefreshTTL,
		ClockSkew:     raw.ClockSkew,
		AccessSecret:  []byte(raw.AccessSecret),
		RefreshSecret: []byte(raw.RefreshSecret),
		RefreshHasher: hasher,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer is required", ErrConfig)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token TTLs must be positive", ErrConfig)
	}
	if c.RefreshTTL < c.AccessTTL {
		return fmt.Errorf("%w: refresh TTL must not be shorter than access TTL", ErrConfig)
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("%w: clock skew must not be negative", ErrConfig)
	}
	if len(c.AccessSecret) < minSecretBytes {
		return fmt.Errorf("%w: VIDTUBE_ACCESS_TOKEN_SECRET must be at least %d bytes", ErrConfig, minSecretBytes)
	}
	if len(c.RefreshSecret) < minSecretBytes {
		return fmt.Errorf("%w: VIDTUBE_REFRESH_TOKEN_SECRET must be at least %d bytes", ErrConfig, minSecretBytes)
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	}
	return nil
}
