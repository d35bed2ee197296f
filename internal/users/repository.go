package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository persists users. Implementations must treat email as unique.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, id, name, avatar string, now time.Time) (User, error)
	UpdateTelephony(ctx context.Context, id string, cfg TelephonyConfig, now time.Time) (User, error)
}
