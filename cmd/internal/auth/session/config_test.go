package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"vidtube/cmd/security/token"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", strings.Repeat("a", 32))
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))
	t.Setenv(token.HMACEnvKey, "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Issuer != "vidtube" {
		t.Fatalf("issuer default: %q", cfg.Issuer)
	}
	if cfg.RefreshHasher.Keyed() {
		t.Fatalf("unset HMAC key must yield the unkeyed hasher")
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl default: %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("refresh ttl default: %v", cfg.RefreshTTL)
	}
	if cfg.ClockSkew != 30*time.Second {
		t.Fatalf("clock skew default: %v", cfg.ClockSkew)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", strings.Repeat("a", 32))
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))
	t.Setenv("VIDTUBE_AUTH_ISSUER", "vidtube-staging")
	t.Setenv("VIDTUBE_AUTH_ACCESS_TTL", "5m")
	t.Setenv("VIDTUBE_AUTH_REFRESH_TTL", "24h")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Issuer != "vidtube-staging" {
		t.Fatalf("issuer: %q", cfg.Issuer)
	}
	if cfg.AccessTTL != 5*time.Minute || cfg.RefreshTTL != 24*time.Hour {
		t.Fatalf("ttls: %v %v", cfg.AccessTTL, cfg.RefreshTTL)
	}
}

func TestLoadConfigFromEnv_KeyedHasher(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", strings.Repeat("a", 32))
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))
	t.Setenv(token.HMACEnvKey, strings.Repeat("k", 32))

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.RefreshHasher.Keyed() {
		t.Fatalf("configured HMAC key must yield a keyed hasher")
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing access secret",
			env: map[string]string{
				"VIDTUBE_REFRESH_TOKEN_SECRET": strings.Repeat("r", 32),
			},
		},
		{
			name: "short refresh secret",
			env: map[string]string{
				"VIDTUBE_ACCESS_TOKEN_SECRET":  strings.Repeat("a", 32),
				"VIDTUBE_REFRESH_TOKEN_SECRET": "short",
			},
		},
		{
			name: "identical secrets",
			env: map[string]string{
				"VIDTUBE_ACCESS_TOKEN_SECRET":  strings.Repeat("a", 32),
				"VIDTUBE_REFRESH_TOKEN_SECRET": strings.Repeat("a", 32),
			},
		},
		{
			name: "refresh shorter than access",
			env: map[string]string{
				"VIDTUBE_ACCESS_TOKEN_SECRET":  strings.Repeat("a", 32),
				"VIDTUBE_REFRESH_TOKEN_SECRET": strings.Repeat("r", 32),
				"VIDTUBE_AUTH_ACCESS_TTL":      "1h",
				"VIDTUBE_AUTH_REFRESH_TTL":     "5m",
			},
		},
		{
			name: "short hmac key",
			env: map[string]string{
				"VIDTUBE_ACCESS_TOKEN_SECRET":  strings.Repeat("a", 32),
				"VIDTUBE_REFRESH_TOKEN_SECRET": strings.Repeat("r", 32),
				token.HMACEnvKey:               "short",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}
