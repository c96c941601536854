package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the credential store over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted to avoid SQL injection via
//     identifiers.
//   - CompareAndSetRefreshTokenHash is a single conditional UPDATE, so the
//     rotation check-and-swap happens inside Postgres and racing refreshes
//     are serialized by row locking.
//   - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "vidtube").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "vidtube",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, email, full_name, avatar_url, cover_url, created_at`

// CreateUser creates a new user row.
//
// Uniqueness is enforced by the uq_users_username_norm / uq_users_email_norm
// constraints; a racing duplicate insert surfaces as ConflictError rather
// than relying on a prior existence read.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
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

	// Stored username is the normalized (lowercase) form; the _norm columns
	// exist so the uniqueness constraints stay correct even if display-case
	// usernames are reintroduced later.
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

	users := pgIdent(s.schema, "users")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, username, username_norm, email, email_norm, full_name,
		     avatar_url, cover_url, password_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		userID,
		usernameNorm,
		usernameNorm,
		email,
		emailNorm,
		fullName,
		avatarURL,
		pgTrimPtr(in.CoverURL),
		pwHash,
		now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return User{
		ID:        userID,
		Username:  usernameNorm,
		Email:     email,
		FullName:  fullName,
		AvatarURL: avatarURL,
		CoverURL:  pgTrimPtr(in.CoverURL),
		CreatedAt: now,
	}, nil
}

// GetUserByID loads the sanitized user record.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const op = "identity.GetUserByID"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, pgInvalid(op, "missing user_id")
	}

	users := pgIdent(s.schema, "users")

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL, &u.CoverURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}

	return u, nil
}

// GetUserAuth resolves a username-or-email identifier to the auth projection.
func (s *PostgresStore) GetUserAuth(ctx context.Context, identifier string) (UserAuth, error) {
	const op = "identity.GetUserAuth"

	if s == nil || s.pool == nil {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return UserAuth{}, pgInvalid(op, "missing identifier")
	}

	// One lookup serves both identifier shapes; the normalized columns make
	// the match case-insensitive without per-query LOWER() scans.
	usernameNorm := NormalizeUsername(identifier)
	emailNorm := NormalizeEmail(identifier)

	users := pgIdent(s.schema, "users")

	var out UserAuth
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash, refresh_token_hash
		   FROM `+users+`
		  WHERE username_norm = $1 OR email_norm = $2`,
		usernameNorm, emailNorm,
	).Scan(
		&out.ID, &out.Username, &out.Email, &out.FullName,
		&out.AvatarURL, &out.CoverURL, &out.CreatedAt,
		&out.PasswordHash, &out.RefreshTokenHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
		}
		return UserAuth{}, err
	}

	return out, nil
}

// GetUserAuthByID loads the auth projection by user ID.
func (s *PostgresStore) GetUserAuthByID(ctx context.Context, userID string) (UserAuth, error) {
	const op = "identity.GetUserAuthByID"

	if s == nil || s.pool == nil {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return UserAuth{}, pgInvalid(op, "missing user_id")
	}

	users := pgIdent(s.schema, "users")

	var out UserAuth
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash, refresh_token_hash
		   FROM `+users+` WHERE id = $1`,
		userID,
	).Scan(
		&out.ID, &out.Username, &out.Email, &out.FullName,
		&out.AvatarURL, &out.CoverURL, &out.CreatedAt,
		&out.PasswordHash, &out.RefreshTokenHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
		}
		return UserAuth{}, err
	}

	return out, nil
}

// SetRefreshTokenHash unconditionally replaces the stored refresh token hash.
func (s *PostgresStore) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	const op = "identity.SetRefreshTokenHash"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(hash) == "" {
		return pgInvalid(op, "missing hash")
	}

	users := pgIdent(s.schema, "users")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET refresh_token_hash = $1,
		        updated_at = now()
		  WHERE id = $2`,
		hash, userID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// CompareAndSetRefreshTokenHash is the rotation linearization point.
//
// The conditional UPDATE makes the compare and the swap a single atomic
// statement: when two refreshes race on the same presented token, Postgres
// serializes them on the row lock and the loser observes zero rows affected.
func (s *PostgresStore) CompareAndSetRefreshTokenHash(ctx context.Context, userID, expectedHash, newHash string) (bool, error) {
	const op = "identity.CompareAndSetRefreshTokenHash"

	if s == nil || s.pool == nil {
		return false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.TrimSpace(userID) == "" {
		return false, pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(expectedHash) == "" || strings.TrimSpace(newHash) == "" {
		return false, pgInvalid(op, "missing hash")
	}

	users := pgIdent(s.schema, "users")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET refresh_token_hash = $1,
		        updated_at = now()
		  WHERE id = $2
		    AND refresh_token_hash = $3`,
		newHash, userID, expectedHash,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ClearRefreshTokenHash clears the stored hash (idempotent logout).
func (s *PostgresStore) ClearRefreshTokenHash(ctx context.Context, userID string) error {
	const op = "identity.ClearRefreshTokenHash"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}

	users := pgIdent(s.schema, "users")

	// No RowsAffected check: clearing an unknown or already-cleared user is
	// a successful no-op, which keeps logout idempotent.
	_, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET refresh_token_hash = NULL,
		        updated_at = now()
		  WHERE id = $1
		    AND refresh_token_hash IS NOT NULL`,
		userID,
	)
	return err
}

// SetPasswordHash replaces the stored password hash.
func (s *PostgresStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const op = "identity.SetPasswordHash"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return pgInvalid(op, "missing password_hash")
	}

	users := pgIdent(s.schema, "users")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET password_hash = $1,
		        updated_at = now()
		  WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

// pgTrimPtr trims a string pointer, returning nil if result is empty.
func pgTrimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to heuristic
	// substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_users_username_norm":
		return "username", true
	case "uq_users_email_norm":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		case strings.Contains(c, "email"):
			return "email", true
		default:
			return "unique", true
		}
	}
}
