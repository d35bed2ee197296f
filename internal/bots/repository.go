package bots

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("bot not found")
	ErrSlugTaken = errors.New("bot slug already taken")
	// ErrStale means the row changed since it was read.
	ErrStale = errors.New("bot changed concurrently")
)

// Repository persists bots. Every method is scoped by owner; a bot owned by
// someone else is reported as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, b Bot) error
	Get(ctx context.Context, userID, id string) (Bot, error)
	ListByUser(ctx context.Context, userID string) ([]Bot, error)
	Update(ctx context.Context, b Bot) error
	Delete(ctx context.Context, userID, id string) error

	// MarkAudioGenerated sets has_audio_generated only if the row's
	// updated_at still equals seenUpdatedAt; otherwise ErrStale.
	MarkAudioGenerated(ctx context.Context, userID, id string, seenUpdatedAt, now time.Time) (Bot, error)
}
