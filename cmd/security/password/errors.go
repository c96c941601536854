package password

import "errors"

// Sentinel errors surfaced to callers. Policy violations map onto the
// first three; ErrInvalidHash covers stored hashes that fail to parse as
// PHC-format argon2id.
var (
	ErrPasswordTooShort = errors.New("password: below minimum length")
	ErrPasswordTooLong  = errors.New("password: above maximum length")
	ErrWeakPassword     = errors.New("password: rejected by strength policy")
	ErrInvalidHash      = errors.New("password: malformed or unsupported hash")
)
