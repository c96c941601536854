package identity

import "vidtube/cmd/security/password"

// HashPassword returns a PHC-style Argon2id hash string.
//
// Policy and cost parameters come from security/password (env + defaults);
// identity must not silently drift from that configuration.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Treat invalid env as an operational error, not a weak fallback.
		return "", err
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a password against a PHC Argon2id hash.
//
// Strict PHC parsing; verification refuses hashes with parameters wildly
// above configured maxima.
func VerifyPassword(plain, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}
	return cfg.Verify(encodedPHC, plain)
}
