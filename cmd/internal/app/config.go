package app

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string        `env:"VIDTUBE_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel string        `env:"VIDTUBE_LOG_LEVEL" envDefault:"info"`

	ReadHeaderTimeout time.Duration `env:"VIDTUBE_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"VIDTUBE_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"VIDTUBE_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"VIDTUBE_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"VIDTUBE_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	DatabaseURL string `env:"VIDTUBE_DATABASE_URL"`
	DBMaxConns  int32  `env:"VIDTUBE_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"VIDTUBE_DB_MIN_CONNS" envDefault:"0"`
	DBSchema    string `env:"VIDTUBE_DB_SCHEMA" envDefault:"vidtube"`

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool `env:"VIDTUBE_READINESS_REQUIRE_DB" envDefault:"false"`

	// LocalMediaDir backs the dev uploader when S3 is not configured.
	LocalMediaDir string `env:"VIDTUBE_LOCAL_MEDIA_DIR" envDefault:"./media"`
}

// LoadConfig loads Config from environment variables with defaults.
// Invalid values fall back to the defaults rather than failing startup.
func LoadConfig() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		cfg = Config{
			HTTPAddr:      "0.0.0.0:8080",
			LogLevel:      "info",
			LocalMediaDir: "./media",
		}
	}

	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = 1 << 20
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}
	if cfg.DBMinConns < 0 {
		cfg.DBMinConns = 0
	}

	return cfg
}
