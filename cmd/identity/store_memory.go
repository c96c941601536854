package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"vidtube/cmd/security/token"
)

// InMemoryStore is a dev-only fallback when DB is not configured. It keeps
// the same semantics as PostgresStore, in particular:
//   - uniqueness on normalized username and email
//   - atomic compare-and-set rotation under a single lock
//   - idempotent ClearRefreshTokenHash
type InMemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*memUser
	byUser  map[string]string // username_norm -> id
	byEmail map[string]string // email_norm -> id
}

type memUser struct {
	user             User
	passwordHash     string
	refreshTokenHash *string
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]*memUser),
		byUser:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// CreateUser creates a new user, enforcing uniqueness under the store lock.
func (s *InMemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	avatarURL := strings.TrimSpace(in.AvatarURL)

	switch {
	case username == "":
		return User{}, pgInvalid(op, "username is required")
	case email == "":
		return User{}, pgInvalid(op, "email is required")
	case fullName == "":
		return User{}, pgInvalid(op, "full_name is required")
	case strings.TrimSpace(in.Password) == "":
		return User{}, pgInvalid(op, "password is required")
	case avatarURL == "":
		return User{}, pgInvalid(op, "avatar_url is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	usernameNorm := NormalizeUsername(username)
	emailNorm := NormalizeEmail(email)

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, pgInvalid(op, err.Error())
	}

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUser[usernameNorm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if _, taken := s.byEmail[emailNorm]; taken {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := User{
		ID:        userID,
		Username:  usernameNorm,
		Email:     email,
		FullName:  fullName,
		AvatarURL: avatarURL,
		CoverURL:  pgTrimPtr(in.CoverURL),
		CreatedAt: now,
	}
	s.byID[userID] = &memUser{user: u, passwordHash: pwHash}
	s.byUser[usernameNorm] = userID
	s.byEmail[emailNorm] = userID

	return u, nil
}

// GetUserByID loads the sanitized user record.
func (s *InMemoryStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, pgInvalid(op, "missing user_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[userID]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return mu.snapshot().User, nil
}

// GetUserAuth resolves a username-or-email identifier to the auth projection.
func (s *InMemoryStore) GetUserAuth(ctx context.Context, identifier string) (UserAuth, error) {
	const op = "identity.GetUserAuth"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return UserAuth{}, pgInvalid(op, "missing identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUser[NormalizeUsername(identifier)]
	if !ok {
		id, ok = s.byEmail[NormalizeEmail(identifier)]
	}
	if !ok {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}

	return s.byID[id].snapshot(), nil
}

// GetUserAuthByID loads the auth projection by user ID.
func (s *InMemoryStore) GetUserAuthByID(ctx context.Context, userID string) (UserAuth, error) {
	const op = "identity.GetUserAuthByID"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return UserAuth{}, pgInvalid(op, "missing user_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[userID]
	if !ok {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	return mu.snapshot(), nil
}

// SetRefreshTokenHash unconditionally replaces the stored refresh token hash.
func (s *InMemoryStore) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	const op = "identity.SetRefreshTokenHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(hash) == "" {
		return pgInvalid(op, "missing hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	h := hash
	mu.refreshTokenHash = &h
	return nil
}

// CompareAndSetRefreshTokenHash swaps the stored hash only when it matches
// expectedHash. The whole compare-and-swap runs under the store lock, so
// exactly one of two racing rotations can win.
func (s *InMemoryStore) CompareAndSetRefreshTokenHash(ctx context.Context, userID, expectedHash, newHash string) (bool, error) {
	const op = "identity.CompareAndSetRefreshTokenHash"

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.TrimSpace(userID) == "" {
		return false, pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(expectedHash) == "" || strings.TrimSpace(newHash) == "" {
		return false, pgInvalid(op, "missing hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[userID]
	if !ok {
		return false, nil
	}
	if mu.refreshTokenHash == nil || !token.EqualHex64(*mu.refreshTokenHash, expectedHash) {
		return false, nil
	}
	h := newHash
	mu.refreshTokenHash = &h
	return true, nil
}

// ClearRefreshTokenHash clears the stored hash (idempotent logout).
func (s *InMemoryStore) ClearRefreshTokenHash(ctx context.Context, userID string) error {
	const op = "identity.ClearRefreshTokenHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mu, ok := s.byID[userID]; ok {
		mu.refreshTokenHash = nil
	}
	return nil
}

// SetPasswordHash replaces the stored password hash.
func (s *InMemoryStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const op = "identity.SetPasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return pgInvalid(op, "missing password_hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	mu.passwordHash = passwordHash
	return nil
}

// snapshot copies the record so callers never share the locked state.
// Callers must hold s.mu.
func (m *memUser) snapshot() UserAuth {
	out := UserAuth{
		User:         m.user,
		PasswordHash: m.passwordHash,
	}
	if m.user.CoverURL != nil {
		c := *m.user.CoverURL
		out.User.CoverURL = &c
	}
	if m.refreshTokenHash != nil {
		h := *m.refreshTokenHash
		out.RefreshTokenHash = &h
	}
	return out
}
