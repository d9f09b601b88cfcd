package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/nldav/accountd/internal/domain"
	"github.com/nldav/accountd/internal/service"
)

type contextKey string

const authContextKey contextKey = "auth"

// AuthContext carries the verified identity of the caller through the
// request context.
type AuthContext struct {
	UserID string
	Role   string
}

// AuthFromContext extracts the authenticated caller from the request
// context. Returns nil if the request is unauthenticated.
func AuthFromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(authContextKey).(*AuthContext)
	return ac
}

// RequireSession protects routes requiring authentication. It reads the
// bearer token from the Authorization header, verifies the signature and
// expiry, and injects an AuthContext for downstream handlers. All
// verification failures collapse to 401; the underlying reason is logged.
func RequireSession(tokens *service.TokenIssuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := authenticateRequest(r, tokens)
		if err != nil {
			slog.Info("rejected session token", "reason", err)
			writeError(w, http.StatusUnauthorized, "Not authenticated.")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is RequireSession plus an admin role check. Authenticated
// non-admins get 403.
func RequireAdmin(tokens *service.TokenIssuer, next http.Handler) http.Handler {
	return RequireSession(tokens, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := AuthFromContext(r.Context())
		if ac == nil || ac.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin access required.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func authenticateRequest(r *http.Request, tokens *service.TokenIssuer) (*AuthContext, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := tokens.VerifySession(token)
	if err != nil {
		return nil, err
	}

	return &AuthContext{UserID: claims.Subject, Role: claims.Role}, nil
}

// RateLimit throttles requests per client IP using the given bucket.
// Over-limit requests get 429.
func RateLimit(limiter *service.TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SecurityHeaders adds standard security headers to every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
