package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// hex64 builds a stand-in digest with the shape the token layer stores.
func hex64(c byte) string {
	return strings.Repeat(string(c), 64)
}

func mustCreateUser(t *testing.T, s Store, username, email, password string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserInput{
		Username:  username,
		Email:     email,
		FullName:  "Test User",
		Password:  password,
		AvatarURL: "https://media.test/avatars/a.png",
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return u
}

func TestInMemoryStore_CreateUser_NormalizesAndReturnsRecord(t *testing.T) {
	s := NewInMemoryStore()

	cover := "  https://media.test/covers/c.png  "
	u, err := s.CreateUser(context.Background(), CreateUserInput{
		Username:  "  Alice  ",
		Email:     "Alice@Example.COM",
		FullName:  "Alice Example",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/a.png",
		CoverURL:  &cover,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected non-empty id")
	}
	if u.Username != "alice" {
		t.Fatalf("username not normalized: %q", u.Username)
	}
	if u.CoverURL == nil || *u.CoverURL != "https://media.test/covers/c.png" {
		t.Fatalf("cover url not trimmed: %v", u.CoverURL)
	}

	auth, err := s.GetUserAuthByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	if auth.PasswordHash == "" || auth.PasswordHash == "pw123" {
		t.Fatalf("password must be stored hashed")
	}
	if !strings.HasPrefix(auth.PasswordHash, "$argon2id$") {
		t.Fatalf("unexpected hash encoding: %q", auth.PasswordHash)
	}
	if auth.RefreshTokenHash != nil {
		t.Fatalf("new user must have no refresh token hash")
	}
}

func TestInMemoryStore_CreateUser_Conflicts(t *testing.T) {
	s := NewInMemoryStore()
	mustCreateUser(t, s, "alice", "alice@example.com", "pw123")

	_, err := s.CreateUser(context.Background(), CreateUserInput{
		Username:  "ALICE",
		Email:     "other@example.com",
		FullName:  "Other",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/b.png",
	})
	if !IsConflict(err) {
		t.Fatalf("expected username conflict, got %v", err)
	}
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username field conflict, got %v", err)
	}

	_, err = s.CreateUser(context.Background(), CreateUserInput{
		Username:  "bob",
		Email:     "Alice@example.com",
		FullName:  "Bob",
		Password:  "pw123",
		AvatarURL: "https://media.test/avatars/b.png",
	})
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email field conflict, got %v", err)
	}
}

func TestInMemoryStore_CreateUser_RequiredFields(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.CreateUser(context.Background(), CreateUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: "pw123",
		// AvatarURL missing
	})
	if !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for missing avatar, got %v", err)
	}
}

func TestInMemoryStore_GetUserAuth_ByUsernameOrEmail(t *testing.T) {
	s := NewInMemoryStore()
	u := mustCreateUser(t, s, "alice", "alice@example.com", "pw123")

	byName, err := s.GetUserAuth(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("GetUserAuth(username): %v", err)
	}
	byMail, err := s.GetUserAuth(context.Background(), "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserAuth(email): %v", err)
	}
	if byName.ID != u.ID || byMail.ID != u.ID {
		t.Fatalf("identifier lookups disagree: %q %q %q", u.ID, byName.ID, byMail.ID)
	}

	if _, err := s.GetUserAuth(context.Background(), "nobody"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryStore_RefreshTokenHash_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	u := mustCreateUser(t, s, "alice", "alice@example.com", "pw123")

	if err := s.SetRefreshTokenHash(ctx, u.ID, hex64('a')); err != nil {
		t.Fatalf("SetRefreshTokenHash: %v", err)
	}

	ok, err := s.CompareAndSetRefreshTokenHash(ctx, u.ID, hex64('a'), hex64('b'))
	if err != nil || !ok {
		t.Fatalf("CAS with matching hash: ok=%v err=%v", ok, err)
	}

	// Same presented hash again: single-use, must lose.
	ok, err = s.CompareAndSetRefreshTokenHash(ctx, u.ID, hex64('a'), hex64('c'))
	if err != nil || ok {
		t.Fatalf("CAS with stale hash must fail: ok=%v err=%v", ok, err)
	}

	if err := s.ClearRefreshTokenHash(ctx, u.ID); err != nil {
		t.Fatalf("ClearRefreshTokenHash: %v", err)
	}
	// Idempotent, including for unknown users.
	if err := s.ClearRefreshTokenHash(ctx, u.ID); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if err := s.ClearRefreshTokenHash(ctx, "01UNKNOWN"); err != nil {
		t.Fatalf("clear unknown user: %v", err)
	}

	// Cleared slot: no rotation possible.
	ok, err = s.CompareAndSetRefreshTokenHash(ctx, u.ID, hex64('b'), hex64('d'))
	if err != nil || ok {
		t.Fatalf("CAS after clear must fail: ok=%v err=%v", ok, err)
	}
}

func TestInMemoryStore_CompareAndSet_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	u := mustCreateUser(t, s, "alice", "alice@example.com", "pw123")

	if err := s.SetRefreshTokenHash(ctx, u.ID, hex64('s')); err != nil {
		t.Fatalf("SetRefreshTokenHash: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan int, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := s.CompareAndSetRefreshTokenHash(ctx, u.ID, hex64('s'), hex64('n'))
			if err != nil {
				t.Errorf("racer %d: %v", n, err)
				return
			}
			if ok {
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Fatalf("expected exactly one CAS winner, got %d", winners)
	}
}

func TestInMemoryStore_SetPasswordHash(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	u := mustCreateUser(t, s, "alice", "alice@example.com", "pw123")

	if err := s.SetPasswordHash(ctx, u.ID, "$argon2id$new"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	auth, err := s.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	if auth.PasswordHash != "$argon2id$new" {
		t.Fatalf("password hash not replaced: %q", auth.PasswordHash)
	}

	if err := s.SetPasswordHash(ctx, "01UNKNOWN", "$x$"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryStore_SnapshotsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	u := mustCreateUser(t, s, "alice", "alice@example.com", "pw123")

	if err := s.SetRefreshTokenHash(ctx, u.ID, hex64('a')); err != nil {
		t.Fatalf("SetRefreshTokenHash: %v", err)
	}
	auth, err := s.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	*auth.RefreshTokenHash = "mutated"

	again, err := s.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	if again.RefreshTokenHash == nil || *again.RefreshTokenHash != hex64('a') {
		t.Fatalf("stored hash aliased through snapshot")
	}
}
