package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Roles a user can hold. The service only distinguishes admins from
// everyone else.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account. PasswordHash, ConfirmTokenHash and
// the reset token pair are secrets: they are only loaded by repository
// methods that ask for them explicitly and must never appear in API
// responses.
type User struct {
	ID                  string
	Email               string
	Name                string
	PasswordHash        string
	Role                string
	EmailConfirmed      bool
	ConfirmTokenHash    string
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserRepository defines persistence operations for users.
//
// ResetPassword and ConfirmEmail are conditional single-statement updates:
// the repository is the only place where "find and mutate" is atomic, so
// races between concurrent requests are resolved here, not in the service.
type UserRepository interface {
	// Create inserts a new user and assigns its ID. A duplicate email
	// fails with ErrDuplicateEmail via the unique constraint, never via a
	// pre-check.
	Create(ctx context.Context, user *User) error

	// GetByID loads a user without secret columns.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail loads a user without secret columns.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByEmailWithSecrets loads a user including the password hash and
	// token columns. Only the auth service should call this.
	GetByEmailWithSecrets(ctx context.Context, email string) (*User, error)

	// SetResetToken stores the reset token hash and its expiry on the
	// user, replacing any outstanding pair.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// ResetPassword replaces the password hash and clears the reset token
	// pair in one statement, matching only when tokenHash equals the
	// stored hash and the expiry is still in the future. Returns
	// ErrResetTokenInvalid when no row matches (wrong token, already
	// consumed, or expired).
	ResetPassword(ctx context.Context, tokenHash, newPasswordHash string) error

	// ConfirmEmail marks the user holding tokenHash as confirmed.
	// Confirming an already-confirmed account is a no-op success; an
	// unknown hash returns ErrNotFound.
	ConfirmEmail(ctx context.Context, tokenHash string) error

	// DeleteExpiredUnconfirmed removes unconfirmed accounts created
	// before the cutoff and reports how many were deleted.
	DeleteExpiredUnconfirmed(ctx context.Context, cutoff time.Time) (int64, error)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lowercases and trims an email address and validates it
// against a basic address pattern.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return email, nil
}
