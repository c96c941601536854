package api

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config controls HTTP behavior and cookie attributes.
type Config struct {
	// BasePath is the route prefix for all user endpoints.
	BasePath string

	// Body and upload limits.
	MaxBodyBytes      int64
	MaxMultipartBytes int64
	MaxImageBytes     int64

	// TempDir receives uploaded files before they go to object storage.
	// Empty means the OS default temp directory.
	TempDir string

	// Cookie attributes for the two token cookies.
	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

type apiEnv struct {
	BasePath          string `env:"VIDTUBE_HTTP_BASE_PATH" envDefault:"/api/v1/users"`
	MaxBodyBytes      int64  `env:"VIDTUBE_HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
	MaxMultipartBytes int64  `env:"VIDTUBE_HTTP_MAX_MULTIPART_BYTES" envDefault:"16777216"`
	MaxImageBytes     int64  `env:"VIDTUBE_HTTP_MAX_IMAGE_BYTES" envDefault:"8388608"`
	TempDir           string `env:"VIDTUBE_HTTP_UPLOAD_TEMP_DIR"`
	CookieDomain      string `env:"VIDTUBE_HTTP_COOKIE_DOMAIN"`
	CookieSecure      bool   `env:"VIDTUBE_HTTP_COOKIE_SECURE" envDefault:"true"`
	CookieSameSite    string `env:"VIDTUBE_HTTP_COOKIE_SAMESITE" envDefault:"lax"`
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:          "/api/v1/users",
		MaxBodyBytes:      1 << 20,  // 1 MiB
		MaxMultipartBytes: 16 << 20, // 16 MiB
		MaxImageBytes:     8 << 20,  // 8 MiB
		AccessCookieName:  "accessToken",
		RefreshCookieName: "refreshToken",
		CookiePath:        "/",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteLaxMode,
	}
}

// LoadConfigFromEnv loads HTTP config from environment variables with safe
// defaults. Invalid values fall back rather than fail: the HTTP surface has
// no setting whose absence should stop the process.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	var raw apiEnv
	if err := env.Parse(&raw); err != nil {
		return cfg
	}

	if p := strings.TrimSpace(raw.BasePath); p != "" && strings.HasPrefix(p, "/") {
		cfg.BasePath = strings.TrimRight(p, "/")
	}
	if raw.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = raw.MaxBodyBytes
	}
	if raw.MaxMultipartBytes > 0 {
		cfg.MaxMultipartBytes = raw.MaxMultipartBytes
	}
	if raw.MaxImageBytes > 0 && raw.MaxImageBytes <= cfg.MaxMultipartBytes {
		cfg.MaxImageBytes = raw.MaxImageBytes
	}
	if d := strings.TrimSpace(raw.TempDir); d != "" {
		if st, err := os.Stat(d); err == nil && st.IsDir() {
			cfg.TempDir = d
		}
	}
	cfg.CookieDomain = strings.TrimSpace(raw.CookieDomain)
	cfg.CookieSecure = raw.CookieSecure
	cfg.CookieSameSite = parseSameSite(raw.CookieSameSite)

	return cfg
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// route joins the base path with a suffix.
func (c Config) route(suffix string) string {
	return fmt.Sprintf("%s%s", c.BasePath, suffix)
}
