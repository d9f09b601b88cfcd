package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nldav/accountd/internal/domain"
	"github.com/nldav/accountd/internal/repository/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestUser(email string) *domain.User {
	return &domain.User{
		Email:            email,
		Name:             "Test User",
		PasswordHash:     "hashedpw",
		Role:             domain.RoleUser,
		ConfirmTokenHash: "confirmhash-" + email,
	}
}

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("test@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID == "" {
		t.Fatal("expected user ID to be set after create")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	if err := repo.Create(ctx, newTestUser("dup@example.com")); err != nil {
		t.Fatalf("Create user1: %v", err)
	}

	err := repo.Create(ctx, newTestUser("dup@example.com"))
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("byid@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if found.Email != user.Email {
		t.Fatalf("expected email %q, got %q", user.Email, found.Email)
	}
	// Default reads exclude secret columns.
	if found.PasswordHash != "" {
		t.Fatal("GetByID must not load the password hash")
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "no-such-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_GetByEmail_ExcludesSecrets(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("byemail@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByEmail(ctx, "byemail@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("expected id %s, got %s", user.ID, found.ID)
	}
	if found.PasswordHash != "" || found.ConfirmTokenHash != "" || found.ResetTokenHash != "" {
		t.Fatal("GetByEmail must not load secret columns")
	}
}

func TestUserRepository_GetByEmailWithSecrets(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("secrets@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByEmailWithSecrets(ctx, "secrets@example.com")
	if err != nil {
		t.Fatalf("GetByEmailWithSecrets: %v", err)
	}
	if found.PasswordHash != "hashedpw" {
		t.Fatalf("expected password hash to be loaded, got %q", found.PasswordHash)
	}
	if found.ResetTokenHash != "" || found.ResetTokenExpiresAt != nil {
		t.Fatal("expected no reset token pair on a fresh user")
	}
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "nonexistent@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_SetResetToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("settoken@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	expiresAt := time.Now().Add(time.Hour)
	if err := repo.SetResetToken(ctx, user.ID, "tokenhash1", expiresAt); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	found, err := repo.GetByEmailWithSecrets(ctx, "settoken@example.com")
	if err != nil {
		t.Fatalf("GetByEmailWithSecrets: %v", err)
	}
	// Hash and expiry are always stored as a pair.
	if found.ResetTokenHash != "tokenhash1" {
		t.Fatalf("expected stored token hash, got %q", found.ResetTokenHash)
	}
	if found.ResetTokenExpiresAt == nil {
		t.Fatal("expected stored token expiry")
	}
}

func TestUserRepository_SetResetToken_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	err := repo.SetResetToken(ctx, "no-such-id", "tokenhash", time.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_ResetPassword_ConsumesToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("consume@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.SetResetToken(ctx, user.ID, "tokenhash1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	if err := repo.ResetPassword(ctx, "tokenhash1", "newhash"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	found, err := repo.GetByEmailWithSecrets(ctx, "consume@example.com")
	if err != nil {
		t.Fatalf("GetByEmailWithSecrets: %v", err)
	}
	// Password replaced and both token fields cleared in the same write.
	if found.PasswordHash != "newhash" {
		t.Fatalf("expected new password hash, got %q", found.PasswordHash)
	}
	if found.ResetTokenHash != "" || found.ResetTokenExpiresAt != nil {
		t.Fatal("expected the reset token pair to be cleared")
	}

	// A second attempt with the consumed token finds no matching row.
	err = repo.ResetPassword(ctx, "tokenhash1", "anotherhash")
	if !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestUserRepository_ResetPassword_ExpiredToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("expired@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.SetResetToken(ctx, user.ID, "tokenhash1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	// Hash matches but the expiry is in the past.
	err := repo.ResetPassword(ctx, "tokenhash1", "newhash")
	if !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for expired token, got %v", err)
	}

	found, err := repo.GetByEmailWithSecrets(ctx, "expired@example.com")
	if err != nil {
		t.Fatalf("GetByEmailWithSecrets: %v", err)
	}
	if found.PasswordHash != "hashedpw" {
		t.Fatal("password must be unchanged after a failed reset")
	}
}

func TestUserRepository_ResetPassword_WrongToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("wrong@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.SetResetToken(ctx, user.ID, "tokenhash1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	err := repo.ResetPassword(ctx, "some-other-hash", "newhash")
	if !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestUserRepository_ConfirmEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("confirm@example.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.ConfirmEmail(ctx, user.ConfirmTokenHash); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}

	found, err := repo.GetByEmail(ctx, "confirm@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !found.EmailConfirmed {
		t.Fatal("expected account to be confirmed")
	}

	// Idempotent: confirming again with the same token still succeeds.
	if err := repo.ConfirmEmail(ctx, user.ConfirmTokenHash); err != nil {
		t.Fatalf("second ConfirmEmail: %v", err)
	}
}

func TestUserRepository_ConfirmEmail_UnknownToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	if err := repo.ConfirmEmail(ctx, "no-such-hash"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// The empty hash must never match anything.
	if err := repo.ConfirmEmail(ctx, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty hash, got %v", err)
	}
}

func TestUserRepository_DeleteExpiredUnconfirmed(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	stale := newTestUser("stale@example.com")
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("Create stale: %v", err)
	}

	confirmed := newTestUser("kept@example.com")
	if err := repo.Create(ctx, confirmed); err != nil {
		t.Fatalf("Create confirmed: %v", err)
	}
	if err := repo.ConfirmEmail(ctx, confirmed.ConfirmTokenHash); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}

	// A future cutoff makes every unconfirmed account eligible.
	deleted, err := repo.DeleteExpiredUnconfirmed(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredUnconfirmed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted account, got %d", deleted)
	}

	if _, err := repo.GetByEmail(ctx, "stale@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected stale account to be gone, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "kept@example.com"); err != nil {
		t.Fatalf("confirmed account should remain: %v", err)
	}
}
