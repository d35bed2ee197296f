package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. These records are not exposed over the API.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.UserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC().Truncate(time.Microsecond)
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// LogCallTriggered records a trigger attempt and how it ended
// (placed, placement_failed, persist_failed).
func (s *Service) LogCallTriggered(ctx context.Context, userID, botID, callID, outcome string) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeCallTriggered,
		BotID:    botID,
		CallID:   callID,
		Message:  "call " + outcome,
		Metadata: metadata(map[string]any{"outcome": outcome}),
	})
}

func (s *Service) LogAudioGenerated(ctx context.Context, userID, botID, voice string) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeAudioGenerated,
		BotID:    botID,
		Message:  "script audio generated",
		Metadata: metadata(map[string]any{"voice": voice}),
	})
}

// LogTelephonyUpdated never records the credentials themselves.
func (s *Service) LogTelephonyUpdated(ctx context.Context, userID string, configured bool) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeTelephonyUpdated,
		Message:  "telephony credentials updated",
		Metadata: metadata(map[string]any{"configured": configured}),
	})
}

func metadata(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
