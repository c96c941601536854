package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require VIDTUBE_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_CreateUser_ConflictUsername_CaseInsensitive(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyIdentitySchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.CreateUser(ctx, CreateUserInput{
		Username:  "Navid",
		Email:     "navid@example.com",
		FullName:  "Navid One",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/1.png",
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	// Same username (case-insensitive) should conflict.
	_, err = s.CreateUser(ctx, CreateUserInput{
		Username:  "nAvId",
		Email:     "navid2@example.com",
		FullName:  "Navid Two",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/2.png",
		Now:       time.Now().UTC(),
	})
	if err == nil {
		t.Fatalf("expected conflict, got nil")
	}
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username conflict, got: %v", err)
	}
}

func TestPostgresStore_CreateUser_ConflictEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyIdentitySchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.CreateUser(ctx, CreateUserInput{
		Username:  "user1",
		Email:     "User@Example.com",
		FullName:  "User One",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/1.png",
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	_, err = s.CreateUser(ctx, CreateUserInput{
		Username:  "user2",
		Email:     "user@example.COM",
		FullName:  "User Two",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/2.png",
		Now:       time.Now().UTC(),
	})
	if err == nil {
		t.Fatalf("expected conflict, got nil")
	}
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email conflict, got: %v", err)
	}
}

func TestPostgresStore_GetUserAuth_ByEitherIdentifier(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyIdentitySchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	u := "lookup-" + strings.ToLower(mustNewULIDLike(t))
	created, err := s.CreateUser(ctx, CreateUserInput{
		Username:  u,
		Email:     u + "@example.com",
		FullName:  "Lookup User",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/l.png",
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	byName, err := s.GetUserAuth(ctx, strings.ToUpper(u))
	if err != nil {
		t.Fatalf("lookup by username: %v", err)
	}
	byMail, err := s.GetUserAuth(ctx, u+"@EXAMPLE.com")
	if err != nil {
		t.Fatalf("lookup by email: %v", err)
	}
	if byName.ID != created.ID || byMail.ID != created.ID {
		t.Fatalf("identifier lookups disagree: %q %q %q", created.ID, byName.ID, byMail.ID)
	}
	if byName.RefreshTokenHash != nil {
		t.Fatalf("fresh user must have no refresh token hash")
	}
}

func TestPostgresStore_RefreshTokenRotation_SingleUse(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyIdentitySchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	u := "rotate-" + strings.ToLower(mustNewULIDLike(t))
	created, err := s.CreateUser(ctx, CreateUserInput{
		Username:  u,
		Email:     u + "@example.com",
		FullName:  "Rotate User",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/r.png",
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	h1 := strings.Repeat("a", 64)
	h2 := strings.Repeat("b", 64)
	h3 := strings.Repeat("c", 64)

	if err := s.SetRefreshTokenHash(ctx, created.ID, h1); err != nil {
		t.Fatalf("set hash: %v", err)
	}

	ok, err := s.CompareAndSetRefreshTokenHash(ctx, created.ID, h1, h2)
	if err != nil || !ok {
		t.Fatalf("rotate: ok=%v err=%v", ok, err)
	}

	// Old hash must lose.
	ok, err = s.CompareAndSetRefreshTokenHash(ctx, created.ID, h1, h3)
	if err != nil || ok {
		t.Fatalf("stale rotate must fail: ok=%v err=%v", ok, err)
	}

	if err := s.ClearRefreshTokenHash(ctx, created.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// Idempotent second clear.
	if err := s.ClearRefreshTokenHash(ctx, created.ID); err != nil {
		t.Fatalf("clear (second call): %v", err)
	}

	ok, err = s.CompareAndSetRefreshTokenHash(ctx, created.ID, h2, h3)
	if err != nil || ok {
		t.Fatalf("rotate after clear must fail: ok=%v err=%v", ok, err)
	}
}

// ---- helpers ----

func mustNewIdentityStore(t *testing.T, pool *pgxpool.Pool, schema string) *PostgresStore {
	t.Helper()
	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("VIDTUBE_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: VIDTUBE_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse VIDTUBE_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	// Validate acquire quickly (fast fail).
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (VIDTUBE_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "vidtube_it_" + strings.ToLower(mustNewULIDLike(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgxIdent1(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgxIdent1(schema)+` CASCADE`)
}

func mustApplyIdentitySchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	users := pgIdent(schema, "users")

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  username_norm TEXT NOT NULL,
  email TEXT NOT NULL,
  email_norm TEXT NOT NULL,
  full_name TEXT NOT NULL,
  avatar_url TEXT NOT NULL,
  cover_url TEXT NULL,
  password_hash TEXT NOT NULL,
  refresh_token_hash TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT chk_users_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_users_refresh_hash_len CHECK (refresh_token_hash IS NULL OR char_length(refresh_token_hash) = 64),
  CONSTRAINT uq_users_username_norm UNIQUE (username_norm),
  CONSTRAINT uq_users_email_norm UNIQUE (email_norm)
);
`, users)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustNewULIDLike(t *testing.T) string {
	t.Helper()

	id, err := NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}

func pgxIdent1(ident string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection in dynamic DDL.
	return pgx.Identifier{ident}.Sanitize()
}
