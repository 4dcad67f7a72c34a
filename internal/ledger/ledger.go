// ABOUTME: Application ledger: at most one sign-up per member and target
// ABOUTME: Duplicate submissions are a distinguishable result, not an error

package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/raketa/internal/store"
)

// Result of a registration attempt. ID is zero when AlreadyApplied is true.
type Result struct {
	ID             int64
	AlreadyApplied bool
}

// Ledger records applications.
type Ledger struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a ledger backed by s.
func New(s store.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  s,
		logger: logger.With("component", "ledger"),
	}
}

// Register records that memberID applied to target. Concurrent identical
// calls produce exactly one record; the rest report AlreadyApplied. The
// only errors are storage failures (including store.ErrNotFound for an
// unknown member or event).
func (l *Ledger) Register(ctx context.Context, memberID int64, target store.ApplicationTarget) (Result, error) {
	id, created, err := l.store.InsertApplication(ctx, memberID, target)
	if err != nil {
		return Result{}, fmt.Errorf("registering application: %w", err)
	}
	if !created {
		l.logger.Debug("duplicate application", "member_id", memberID, "event_id", target.EventID, "announcement", target.Announcement)
		return Result{AlreadyApplied: true}, nil
	}

	l.logger.Info("application recorded",
		"application_id", id,
		"member_id", memberID,
		"event_id", target.EventID,
		"announcement", target.Announcement)
	return Result{ID: id}, nil
}
