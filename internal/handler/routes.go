package handler

import (
	"net/http"

	"github.com/nldav/accountd/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. The
// credential-sensitive endpoints are rate limited per client IP.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, tokens *service.TokenIssuer, limiter *service.TokenBucket) {
	authHandler := NewAuthHandler(auth)

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("POST /register", authHandler.HandleRegister)
	mux.Handle("POST /login", RateLimit(limiter, http.HandlerFunc(authHandler.HandleLogin)))
	mux.HandleFunc("GET /confirm-email", authHandler.HandleConfirmEmail)
	mux.Handle("POST /forgot-password", RateLimit(limiter, http.HandlerFunc(authHandler.HandleForgotPassword)))
	mux.Handle("POST /reset-password", RateLimit(limiter, http.HandlerFunc(authHandler.HandleResetPassword)))

	mux.Handle("GET /me", RequireSession(tokens, http.HandlerFunc(authHandler.HandleMe)))
	mux.Handle("GET /admin", RequireAdmin(tokens, http.HandlerFunc(authHandler.HandleAdmin)))
}
