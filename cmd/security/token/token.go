package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "VIDTUBE_TOKEN_HMAC_KEY"
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a
// minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Hasher computes the digests stored for refresh tokens. The key is
// fixed at construction; the zero value is the unkeyed SHA-256 dev
// fallback.
type Hasher struct {
	key []byte
}

// NewHasher returns a hasher over key. An empty key yields the unkeyed
// fallback.
func NewHasher(key []byte) Hasher {
	return Hasher{key: key}
}

// HasherFromEnv resolves VIDTUBE_TOKEN_HMAC_KEY exactly once. A missing
// key yields the unkeyed fallback; a key below minBytes is
// ErrHMACKeyTooShort so a weak key fails startup instead of silently
// downgrading.
func HasherFromEnv(minBytes int) (Hasher, error) {
	key, err := HMACKeyFromEnv(minBytes)
	switch {
	case err == nil:
		return Hasher{key: key}, nil
	case errors.Is(err, ErrHMACKeyMissing):
		return Hasher{}, nil
	default:
		return Hasher{}, err
	}
}

// Keyed reports whether digests are HMAC-SHA256 rather than the dev
// fallback.
func (h Hasher) Keyed() bool {
	return len(h.key) > 0
}

// Hash returns the 64-hex digest stored for token.
func (h Hasher) Hash(token string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(token)
	}
	return HashHMACSHA256Hex(token, h.key)
}

// EqualHex64 compares two expected 64-char hex digests in constant time.
// Rejects if either length != 64 to keep timing stable.
func EqualHex64(a, b string) bool {
	if len(a) != 64 || len(b) != 64 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
