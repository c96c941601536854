package session

import (
	"context"
	"strings"
	"time"

	"vidtube/cmd/identity"
	"vidtube/cmd/internal/media"
)

// Service implements the high-level account and session operations.
//
// It registers users (uploading their images first, so no user row exists
// without its avatar), verifies credentials, issues the access/refresh token
// pair, rotates refresh tokens single-use, and changes passwords.
type Service struct {
	cfg    Config
	tokens *TokenManager
	store  identity.Store
	media  media.Uploader

	now func() time.Time
}

// TokenPair is the result of login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RegisterInput carries the registration fields plus the local temp paths of
// the uploaded images. AvatarPath is mandatory; CoverPath may be empty.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	AvatarPath string
	CoverPath  string
}

// NewService constructs a Service with the provided configuration, store,
// token manager, and media uploader.
func NewService(cfg Config, store identity.Store, tokens *TokenManager, uploader media.Uploader) *Service {
	return &Service{
		cfg:    cfg,
		tokens: tokens,
		store:  store,
		media:  uploader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register validates input, uploads the avatar (and cover when present) to
// object storage, then creates the user. Uploads happen before the insert,
// so a storage failure never leaves a user row without its avatar.
func (s *Service) Register(ctx context.Context, in RegisterInput) (identity.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	switch {
	case username == "":
		return identity.User{}, ValidationError{Field: "username", Msg: "username is required"}
	case email == "":
		return identity.User{}, ValidationError{Field: "email", Msg: "email is required"}
	case !strings.Contains(email, "@"):
		return identity.User{}, ValidationError{Field: "email", Msg: "email is invalid"}
	case fullName == "":
		return identity.User{}, ValidationError{Field: "fullName", Msg: "full name is required"}
	case strings.TrimSpace(in.Password) == "":
		return identity.User{}, ValidationError{Field: "password", Msg: "password is required"}
	case strings.TrimSpace(in.AvatarPath) == "":
		return identity.User{}, ValidationError{Field: "avatar", Msg: "avatar file is required"}
	}

	avatarURL, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		return identity.User{}, err
	}

	var coverURL *string
	if strings.TrimSpace(in.CoverPath) != "" {
		u, err := s.media.Upload(ctx, in.CoverPath)
		if err != nil {
			return identity.User{}, err
		}
		coverURL = &u
	}

	user, err := s.store.CreateUser(ctx, identity.CreateUserInput{
		Username:  username,
		Email:     email,
		FullName:  fullName,
		Password:  in.Password,
		AvatarURL: avatarURL,
		CoverURL:  coverURL,
		Now:       s.now(),
	})
	if err != nil {
		if identity.IsInvalidInput(err) {
			return identity.User{}, ValidationError{Msg: err.Error()}
		}
		return identity.User{}, err
	}
	return user, nil
}

// Login verifies the identifier/password pair and issues fresh tokens.
// All credential failures map to ErrInvalidCredentials so responses cannot
// distinguish unknown accounts from wrong passwords.
func (s *Service) Login(ctx context.Context, identifier, password string) (identity.User, TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identity.User{}, TokenPair{}, ValidationError{Field: "identifier", Msg: "username or email is required"}
	}
	if password == "" {
		return identity.User{}, TokenPair{}, ValidationError{Field: "password", Msg: "password is required"}
	}

	auth, err := s.store.GetUserAuth(ctx, identifier)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return identity.User{}, TokenPair{}, err
	}

	ok, err := identity.VerifyPassword(password, auth.PasswordHash)
	if err != nil || !ok {
		return identity.User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(auth.ID)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}

	if err := s.store.SetRefreshTokenHash(ctx, auth.ID, s.cfg.RefreshHasher.Hash(pair.RefreshToken)); err != nil {
		return identity.User{}, TokenPair{}, err
	}

	return auth.User, pair, nil
}

// Refresh rotates a presented refresh token for a new token pair.
//
// The swap of stored hashes is a single compare-and-set, which makes the
// presented token single-use: of two racing refreshes carrying the same
// token, exactly one wins and the other gets ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	claims, err := s.tokens.Verify(presented, KindRefresh, s.now())
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := s.issuePair(claims.UserID)
	if err != nil {
		return TokenPair{}, err
	}

	won, err := s.store.CompareAndSetRefreshTokenHash(ctx,
		claims.UserID,
		s.cfg.RefreshHasher.Hash(presented),
		s.cfg.RefreshHasher.Hash(pair.RefreshToken),
	)
	if err != nil {
		return TokenPair{}, err
	}
	if !won {
		return TokenPair{}, ErrInvalidToken
	}

	return pair, nil
}

// Logout clears the stored refresh token hash. Idempotent: logging out an
// already logged-out user succeeds.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.ClearRefreshTokenHash(ctx, userID)
}

// ChangePassword verifies the old password and replaces the stored hash.
// The stored refresh token is left untouched, so existing sessions survive
// a password change.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return ValidationError{Field: "oldPassword", Msg: "old password is required"}
	}
	if newPassword == "" {
		return ValidationError{Field: "newPassword", Msg: "new password is required"}
	}

	auth, err := s.store.GetUserAuthByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := identity.VerifyPassword(oldPassword, auth.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	newHash, err := identity.HashPassword(newPassword)
	if err != nil {
		return ValidationError{Field: "newPassword", Msg: err.Error()}
	}

	return s.store.SetPasswordHash(ctx, userID, newHash)
}

// CurrentUser loads the sanitized record of an authenticated user.
func (s *Service) CurrentUser(ctx context.Context, userID string) (identity.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// VerifyAccess validates an access token for the HTTP guard.
func (s *Service) VerifyAccess(tok string) (Claims, error) {
	return s.tokens.Verify(tok, KindAccess, s.now())
}

func (s *Service) issuePair(userID string) (TokenPair, error) {
	now := s.now()

	access, accessExp, err := s.tokens.Issue(KindAccess, userID, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.Issue(KindRefresh, userID, now)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
