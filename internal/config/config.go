// Package config loads runtime settings from the environment into an
// explicit Config value that is constructed once in main and passed into
// the services that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime setting the service needs.
//
// JWTSecret signs session tokens (HS256) and is the only setting without a
// default: a missing or short secret is a startup error, not something to
// limp along without.
type Config struct {
	Addr                 string
	DatabasePath         string
	JWTSecret            string
	SessionTTL           time.Duration
	ResetTokenTTL        time.Duration
	UnconfirmedRetention time.Duration
	FrontendURL          string
	BcryptCost           int
}

// Load reads configuration from environment variables, applying defaults
// for everything except JWT_SECRET.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:                 ":" + envOrDefault("PORT", "8080"),
		DatabasePath:         envOrDefault("DATABASE_PATH", "accountd.db"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SessionTTL:           24 * time.Hour,
		ResetTokenTTL:        time.Hour,
		UnconfirmedRetention: 7 * 24 * time.Hour,
		FrontendURL:          envOrDefault("FRONTEND_URL", "http://localhost:3000"),
		BcryptCost:           12,
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("RESET_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RESET_TOKEN_TTL: %w", err)
		}
		cfg.ResetTokenTTL = d
	}
	if v := os.Getenv("UNCONFIRMED_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UNCONFIRMED_RETENTION: %w", err)
		}
		cfg.UnconfirmedRetention = d
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		if parsed < 4 || parsed > 14 {
			return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", parsed)
		}
		cfg.BcryptCost = parsed
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
