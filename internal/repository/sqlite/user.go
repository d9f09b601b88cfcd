package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nldav/accountd/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
//
// All timestamps are stored in UTC so the expiry comparison in
// ResetPassword is consistent regardless of server timezone.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.sql}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, email_confirmed, confirm_token_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, user.Email, user.Name, user.PasswordHash, user.Role, user.EmailConfirmed, user.ConfirmTokenHash, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, email_confirmed, created_at, updated_at
		 FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.EmailConfirmed, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, email_confirmed, created_at, updated_at
		 FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.EmailConfirmed, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmailWithSecrets(ctx context.Context, email string) (*domain.User, error) {
	user := &domain.User{}
	var resetHash sql.NullString
	var resetExpires sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, email_confirmed, confirm_token_hash,
		        reset_token_hash, reset_token_expires_at, created_at, updated_at
		 FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.EmailConfirmed,
		&user.ConfirmTokenHash, &resetHash, &resetExpires, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if resetHash.Valid {
		user.ResetTokenHash = resetHash.String
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		user.ResetTokenExpiresAt = &t
	}
	return user, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = ?, reset_token_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		tokenHash, expiresAt.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetPassword is the single atomic statement that makes the reset flow
// race-safe: the password write and the clearing of the token pair either
// both happen or neither does, and the WHERE clause matches only an
// unexpired, unconsumed token. A concurrent attempt with the same token
// loses the race and sees zero affected rows.
func (r *UserRepository) ResetPassword(ctx context.Context, tokenHash, newPasswordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ?
		 WHERE reset_token_hash = ? AND reset_token_expires_at > ?`,
		newPasswordHash, time.Now().UTC(), tokenHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrResetTokenInvalid
	}
	return nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, tokenHash string) error {
	if tokenHash == "" {
		return domain.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_confirmed = 1, updated_at = ?
		 WHERE confirm_token_hash = ?`,
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteExpiredUnconfirmed(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE email_confirmed = 0 AND created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired unconfirmed users: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}

// isUniqueConstraintError checks if the error is a SQLite unique
// constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "unique constraint")
}
