package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nldav/accountd/internal/domain"
)

// AccountJanitor periodically deletes unconfirmed accounts that have
// outlived their retention window, freeing their email addresses for
// re-registration. The credential core itself never hard-deletes users;
// this is the scheduled collaborator that does.
type AccountJanitor struct {
	users     domain.UserRepository
	retention time.Duration
	interval  time.Duration
}

// NewAccountJanitor creates a janitor that removes unconfirmed accounts
// older than retention, sweeping every interval.
func NewAccountJanitor(users domain.UserRepository, retention, interval time.Duration) *AccountJanitor {
	return &AccountJanitor{users: users, retention: retention, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled. Call it in its own
// goroutine.
func (j *AccountJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs a single cleanup pass.
func (j *AccountJanitor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.users.DeleteExpiredUnconfirmed(ctx, cutoff)
	if err != nil {
		slog.Error("delete expired unconfirmed accounts", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("removed expired unconfirmed accounts", "count", deleted)
	}
}
