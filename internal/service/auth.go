package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nldav/accountd/internal/domain"
	"github.com/nldav/accountd/internal/notify"
)

// AuthService owns the credential lifecycle: registration, login, email
// confirmation and the password reset flow. All security invariants live
// here; handlers only translate errors to HTTP.
type AuthService struct {
	users         domain.UserRepository
	hasher        PasswordHasher
	tokens        *TokenIssuer
	notifier      notify.Notifier
	resetTokenTTL time.Duration
	frontendURL   string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, hasher PasswordHasher, tokens *TokenIssuer, notifier notify.Notifier, resetTokenTTL time.Duration, frontendURL string) *AuthService {
	return &AuthService{
		users:         users,
		hasher:        hasher,
		tokens:        tokens,
		notifier:      notifier,
		resetTokenTTL: resetTokenTTL,
		frontendURL:   frontendURL,
	}
}

// Register creates a new unconfirmed account and emails a confirmation
// link. Email uniqueness is enforced by the repository's unique
// constraint, not a pre-check, so two concurrent registrations for the
// same address cannot both succeed.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	confirmToken, confirmHash, err := s.tokens.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate confirmation token: %w", err)
	}

	user := &domain.User{
		Email:            email,
		Name:             name,
		PasswordHash:     hash,
		Role:             domain.RoleUser,
		EmailConfirmed:   false,
		ConfirmTokenHash: confirmHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// The account exists regardless of whether the email goes out; a
	// notifier failure is logged and swallowed.
	link := s.frontendURL + "/confirm-email?token=" + confirmToken
	if err := s.notifier.SendConfirmation(ctx, user.Email, link); err != nil {
		slog.Error("send confirmation email", "error", err, "email", user.Email)
	}

	return user, nil
}

// Login verifies credentials and returns the user plus a signed session
// token. An unknown email and a wrong password produce the identical
// ErrInvalidCredentials so callers cannot probe which accounts exist. An
// unconfirmed account is reported as such: the caller proved they own the
// credentials, so that leak is deliberate.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.GetByEmailWithSecrets(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, "", domain.ErrNotConfirmed
	}

	token, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	return user, token, nil
}

// ConfirmEmail marks the account holding the presented token as
// confirmed. Re-confirming an already-confirmed account succeeds as a
// no-op.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: confirmation token is required", domain.ErrValidation)
	}

	err := s.users.ConfirmEmail(ctx, s.tokens.HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown confirmation token", domain.ErrValidation)
		}
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// ForgotPassword starts the reset flow. The caller always gets the same
// generic outcome whether or not the email is registered; only a known
// address results in a persisted token and an email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// No write, no email, same response.
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	resetToken, resetHash, err := s.tokens.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, resetHash, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := s.frontendURL + "/reset-password/" + resetToken
	if err := s.notifier.SendPasswordReset(ctx, user.Email, link); err != nil {
		slog.Error("send password reset email", "error", err, "email", user.Email)
	}

	return nil
}

// ResetPassword consumes a reset token and replaces the password. The
// repository matches the token hash and expiry and clears the pair in the
// same statement as the password write, so a raced second attempt with
// the same token finds no matching row and fails with
// ErrResetTokenInvalid.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return fmt.Errorf("%w: reset token is required", domain.ErrValidation)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.users.ResetPassword(ctx, s.tokens.HashOpaqueToken(token), hash)
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenInvalid) {
			return domain.ErrResetTokenInvalid
		}
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
