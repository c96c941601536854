package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for any login failure: unknown
	// identifier or wrong password. The message is deliberately uniform so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when an access or refresh token fails
	// verification, is of the wrong kind, or no longer matches the stored
	// refresh state.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a structurally valid token is past
	// its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrSigning is returned when token generation fails. This is an
	// internal error, never a client fault.
	ErrSigning = errors.New("token signing failed")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// ValidationError reports a client input problem for a specific field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
