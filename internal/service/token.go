package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. The auth middleware collapses all of them
// to 401, but logs which one occurred.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
)

// SessionClaims are the claims embedded in a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenIssuer creates and verifies the two token kinds the service uses:
// signed stateless session tokens (JWT, HS256) and opaque single-use
// tokens for email confirmation and password reset, which are stored only
// as SHA-256 hashes.
type TokenIssuer struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with the given secret.
func NewTokenIssuer(secret string, sessionTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), sessionTTL: sessionTTL}
}

// IssueSession signs a session token for the user. Any bit flip in the
// result invalidates the signature.
func (t *TokenIssuer) IssueSession(userID, role string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.sessionTTL)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifySession parses and validates a session token, returning its
// claims. Failures map to ErrTokenExpired, ErrTokenMalformed or
// ErrTokenSignature.
func (t *TokenIssuer) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenSignature
		}
	}
	if !token.Valid {
		return nil, ErrTokenSignature
	}
	return claims, nil
}

// NewOpaqueToken generates a random opaque token (256 bits of entropy)
// and its SHA-256 hash. The plaintext goes into an emailed link and is
// never persisted; only the hash is stored, so a database leak cannot be
// turned into a valid link.
func (t *TokenIssuer) NewOpaqueToken() (plain, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	plain = hex.EncodeToString(b)
	return plain, t.HashOpaqueToken(plain), nil
}

// HashOpaqueToken re-derives the stored hash from a presented token. The
// hash is deterministic and unsalted so the repository can look it up
// directly.
func (t *TokenIssuer) HashOpaqueToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
