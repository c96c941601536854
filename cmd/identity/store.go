package identity

import (
	"context"
	"time"
)

// User is vidtube's canonical security principal, as exposed outward.
// It intentionally carries no secret material: password hashes and refresh
// token hashes live only on UserAuth and never leave the auth layers.
type User struct {
	ID       string
	Username string
	Email    string
	FullName string

	AvatarURL string
	CoverURL  *string

	CreatedAt time.Time
}

// UserAuth is the store-internal projection used by the session lifecycle.
// RefreshTokenHash holds the HMAC/SHA-256 hex digest of the single refresh
// token currently considered valid for the user; nil means no live session.
type UserAuth struct {
	User

	PasswordHash     string
	RefreshTokenHash *string
}

// CreateUserInput describes a user registration request.
// Username, Email, FullName, Password and AvatarURL are required; CoverURL
// is optional. The store normalizes username/email and hashes the password.
type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Password string

	AvatarURL string
	CoverURL  *string

	Now time.Time
}

// Store is the credential persistence boundary.
//
// Implementations must enforce username/email uniqueness with a real
// constraint (a racing duplicate create surfaces as ConflictError, never as
// a second row) and must make CompareAndSetRefreshTokenHash atomic, since it
// is the linearization point for refresh rotation.
type Store interface {
	// CreateUser creates a new user. Returns ConflictError when the
	// normalized username or email is already taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserByID loads the sanitized user record.
	GetUserByID(ctx context.Context, userID string) (User, error)

	// GetUserAuth resolves an identifier (username or email, normalized)
	// to the full auth projection. Returns NotFoundError when no user
	// matches.
	GetUserAuth(ctx context.Context, identifier string) (UserAuth, error)

	// GetUserAuthByID loads the full auth projection by ID.
	GetUserAuthByID(ctx context.Context, userID string) (UserAuth, error)

	// SetRefreshTokenHash unconditionally replaces the stored refresh token
	// hash (the login rotation point).
	SetRefreshTokenHash(ctx context.Context, userID, hash string) error

	// CompareAndSetRefreshTokenHash atomically replaces the stored hash with
	// newHash only if the current value equals expectedHash. Returns false
	// when the stored value differs, is cleared, or the user is gone.
	CompareAndSetRefreshTokenHash(ctx context.Context, userID, expectedHash, newHash string) (bool, error)

	// ClearRefreshTokenHash clears the stored hash. Idempotent: clearing an
	// already-cleared value succeeds.
	ClearRefreshTokenHash(ctx context.Context, userID string) error

	// SetPasswordHash replaces the stored password hash.
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
}
