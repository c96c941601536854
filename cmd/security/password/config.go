package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a baseline suitable for an interactive login flow.
//
// CPU-aware parallelism avoids extreme settings on multi-core hosts; we clamp
// to [1..4] to keep resource usage predictable in containers.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      1,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

type envOverrides struct {
	MinLength      int    `env:"VIDTUBE_PASSWORD_MIN_LEN"`
	MaxLength      int    `env:"VIDTUBE_PASSWORD_MAX_LEN"`
	RejectVeryWeak bool   `env:"VIDTUBE_PASSWORD_REJECT_VERY_WEAK"`
	MemoryKiB      uint32 `env:"VIDTUBE_ARGON2_MEMORY_KIB"`
	Iterations     uint32 `env:"VIDTUBE_ARGON2_ITERATIONS"`
	Parallelism    uint8  `env:"VIDTUBE_ARGON2_PARALLELISM"`
	SaltLength     uint32 `env:"VIDTUBE_ARGON2_SALT_LEN"`
	KeyLength      uint32 `env:"VIDTUBE_ARGON2_KEY_LEN"`
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
//   - VIDTUBE_PASSWORD_MIN_LEN / VIDTUBE_PASSWORD_MAX_LEN
//   - VIDTUBE_PASSWORD_REJECT_VERY_WEAK
//   - VIDTUBE_ARGON2_MEMORY_KIB / _ITERATIONS / _PARALLELISM / _SALT_LEN / _KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	var raw envOverrides
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("password env: %w", err)
	}

	if raw.MinLength > 0 {
		if raw.MinLength > 1024 {
			return Config{}, fmt.Errorf("VIDTUBE_PASSWORD_MIN_LEN: out of range [1..1024]")
		}
		cfg.Policy.MinLength = raw.MinLength
	}
	if raw.MaxLength > 0 {
		if raw.MaxLength > 4096 {
			return Config{}, fmt.Errorf("VIDTUBE_PASSWORD_MAX_LEN: out of range [1..4096]")
		}
		cfg.Policy.MaxLength = raw.MaxLength
	}
	if raw.RejectVeryWeak {
		cfg.Policy.RejectVeryWeak = true
	}

	if raw.MemoryKiB > 0 {
		if raw.MemoryKiB < 8*1024 || raw.MemoryKiB > 1024*1024 {
			return Config{}, fmt.Errorf("VIDTUBE_ARGON2_MEMORY_KIB: out of range [8192..1048576]")
		}
		cfg.Params.MemoryKiB = raw.MemoryKiB
	}
	if raw.Iterations > 0 {
		if raw.Iterations > 20 {
			return Config{}, fmt.Errorf("VIDTUBE_ARGON2_ITERATIONS: out of range [1..20]")
		}
		cfg.Params.Iterations = raw.Iterations
	}
	if raw.Parallelism > 0 {
		cfg.Params.Parallelism = raw.Parallelism
	}
	if raw.SaltLength > 0 {
		if raw.SaltLength < 8 || raw.SaltLength > 64 {
			return Config{}, fmt.Errorf("VIDTUBE_ARGON2_SALT_LEN: out of range [8..64]")
		}
		cfg.Params.SaltLength = raw.SaltLength
	}
	if raw.KeyLength > 0 {
		if raw.KeyLength < 16 || raw.KeyLength > 64 {
			return Config{}, fmt.Errorf("VIDTUBE_ARGON2_KEY_LEN: out of range [16..64]")
		}
		cfg.Params.KeyLength = raw.KeyLength
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}
