// Package notify defines the outbound email contract. Delivery failures
// are the notifier's problem: callers fire and forget, and a lost email
// never fails the operation that triggered it.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends account emails with a pre-built link.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, confirmationLink string) error
	SendPasswordReset(ctx context.Context, email, resetLink string) error
}

// LogNotifier writes the emails it would send to the log instead of
// delivering them. Useful for development and tests; a real deployment
// swaps in an SMTP- or API-backed implementation.
type LogNotifier struct{}

func (LogNotifier) SendConfirmation(ctx context.Context, email, confirmationLink string) error {
	slog.Info("simulated email: confirm your account", "to", email, "link", confirmationLink)
	return nil
}

func (LogNotifier) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	slog.Info("simulated email: password reset", "to", email, "link", resetLink)
	return nil
}
