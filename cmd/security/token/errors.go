package token

import "errors"

// Sentinel errors returned by the key loaders. Callers compare with
// errors.Is to decide between failing startup and falling back to the
// unkeyed digest.
var (
	ErrHMACKeyMissing  = errors.New("token: HMAC key not configured")
	ErrHMACKeyTooShort = errors.New("token: HMAC key below minimum length")
)
