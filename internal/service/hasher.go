package service

import (
	"fmt"

	"github.com/nldav/accountd/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordLen is bcrypt's input limit; longer passwords are silently
// truncated by the primitive, so we reject them instead.
const maxPasswordLen = 72

// PasswordHasher is the one-way hashing contract the auth service depends
// on. Implementations must salt per call and compare in constant time.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher hashes passwords with bcrypt. Each call generates a fresh
// salt, so hashing the same password twice yields different outputs.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password must not be empty", domain.ErrValidation)
	}
	if len(plaintext) > maxPasswordLen {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, maxPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. bcrypt's
// comparison is constant-time with respect to the hash contents.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
