package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - user_id is required; every event belongs to one account.
// - ip capture is best-effort; do not block critical flows on audit failures.
type Event struct {
	ID     string    `json:"id" db:"id"`
	UserID string    `json:"user_id" db:"user_id"`
	Type   EventType `json:"type" db:"type"`

	// IPAddress is the resolved client IP when the event came from a request.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	BotID  string `json:"bot_id,omitempty" db:"bot_id"`
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallTriggered    EventType = "call_triggered"
	EventTypeAudioGenerated   EventType = "audio_generated"
	EventTypeTelephonyUpdated EventType = "telephony_updated"
)
