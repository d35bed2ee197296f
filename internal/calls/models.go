package calls

import (
	"fmt"
	"strings"
	"time"
)

// CallLog is one outbound call attempt for a user's bot.
//
// Invariants:
// - UserID and BotID never change after creation, and the bot belongs to the user.
// - Status only moves forward; terminal statuses are final apart from webhook replays.
// - ProviderCallID is empty until placement succeeds and unique once set.
type CallLog struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	BotID  string `json:"botId"`

	// BotName is filled by per-user listings only.
	BotName string `json:"botName,omitempty"`

	PhoneNumber    string    `json:"phoneNumber"`
	Direction      Direction `json:"direction"`
	Status         Status    `json:"status"`
	Duration       int       `json:"duration"`
	ProviderCallID string    `json:"providerCallId"`

	Responses  Responses `json:"responses"`
	Transcript string    `json:"transcript"`
	Sentiment  Sentiment `json:"sentiment"`

	FailureReason string `json:"failureReason,omitempty"`

	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// ParseStatus accepts any case and '_' for '-' ("NO_ANSWER" -> no-answer).
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	switch s {
	case StatusQueued, StatusRinging, StatusInProgress, StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return s, nil
	default:
		return "", fmt.Errorf("unknown call status %q", raw)
	}
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

const (
	MaxListByBot  = 50
	MaxListByUser = 100
)
