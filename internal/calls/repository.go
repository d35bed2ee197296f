package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("call log not found")
	// ErrDuplicateProviderCallID means another row already owns the provider id.
	ErrDuplicateProviderCallID = errors.New("provider call id already recorded")
)

// ReconcileFunc maps the locked row to its new state and reports whether it changed.
type ReconcileFunc func(cur CallLog) (CallLog, bool)

// Repository persists call logs.
//
// Write rules:
// - SetProviderCallID only fills an empty provider id.
// - MarkFailed only moves a non-terminal row to failed.
// - Reconcile runs fn under a row lock and writes only when fn reports a change.
type Repository interface {
	Create(ctx context.Context, c CallLog) error
	SetProviderCallID(ctx context.Context, id, providerCallID string, now time.Time) error
	MarkFailed(ctx context.Context, id, reason string, now time.Time) error
	Reconcile(ctx context.Context, providerCallID string, fn ReconcileFunc) (CallLog, bool, error)

	ListByBot(ctx context.Context, userID, botID string, limit int) ([]CallLog, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]CallLog, error)
}
