package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nldav/accountd/internal/config"
	"github.com/nldav/accountd/internal/handler"
	"github.com/nldav/accountd/internal/notify"
	"github.com/nldav/accountd/internal/repository/sqlite"
	"github.com/nldav/accountd/internal/service"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, logOpts)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	users := db.Users()
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(users, hasher, tokens, notify.LogNotifier{}, cfg.ResetTokenTTL, cfg.FrontendURL)

	// Allow bursts of 10 on the credential endpoints, refilling one
	// request per second per client IP.
	limiter := service.NewTokenBucket(1, 10)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, tokens, limiter)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Unconfirmed accounts that never confirm are swept daily.
	janitor := service.NewAccountJanitor(users, cfg.UnconfirmedRetention, 24*time.Hour)
	go janitor.Run(ctx)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
