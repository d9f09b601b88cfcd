package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/nldav/accountd/internal/domain"
	"github.com/nldav/accountd/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0"

func TestTokenIssuer_SessionRoundTrip(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour)

	token, err := issuer.IssueSession("user-123", domain.RoleUser)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := issuer.VerifySession(token)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("expected subject user-123, got %q", claims.Subject)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("expected role %q, got %q", domain.RoleUser, claims.Role)
	}
}

func TestTokenIssuer_ExpiredSession(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, -time.Minute)

	token, err := issuer.IssueSession("user-123", domain.RoleUser)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	_, err = issuer.VerifySession(token)
	if !errors.Is(err, service.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_MalformedToken(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour)

	_, err := issuer.VerifySession("not-a-jwt")
	if !errors.Is(err, service.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenIssuer_TamperedToken(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour)

	token, err := issuer.IssueSession("user-123", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	// Flip several characters in the signature.
	tampered := token[:len(token)-5] + "XXXXX"
	_, err = issuer.VerifySession(tampered)
	if !errors.Is(err, service.ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for tampered token, got %v", err)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer1 := service.NewTokenIssuer(testJWTSecret, time.Hour)
	issuer2 := service.NewTokenIssuer("a-completely-different-secret-32", time.Hour)

	token, err := issuer1.IssueSession("user-123", domain.RoleUser)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	_, err = issuer2.VerifySession(token)
	if !errors.Is(err, service.ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for wrong secret, got %v", err)
	}
}

func TestTokenIssuer_OpaqueToken(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour)

	plain, hash, err := issuer.NewOpaqueToken()
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	if len(plain) != 64 { // 32 random bytes hex-encoded
		t.Fatalf("expected 64-char plaintext token, got %d chars", len(plain))
	}
	if plain == hash {
		t.Fatal("plaintext and hash must differ")
	}

	// The hash derivation must be deterministic so lookup-by-hash works.
	if got := issuer.HashOpaqueToken(plain); got != hash {
		t.Fatalf("HashOpaqueToken mismatch: %q != %q", got, hash)
	}
}

func TestTokenIssuer_OpaqueTokensAreUnique(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		plain, _, err := issuer.NewOpaqueToken()
		if err != nil {
			t.Fatalf("NewOpaqueToken: %v", err)
		}
		if seen[plain] {
			t.Fatal("generated a duplicate opaque token")
		}
		seen[plain] = true
	}
}
