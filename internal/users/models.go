package users

import (
	"encoding/json"
	"strings"
	"time"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"

	DefaultMinutesLimit = 100
)

type User struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Avatar       string          `json:"avatar"`
	Telephony    TelephonyConfig `json:"telephonyConfig"`
	Subscription Subscription    `json:"subscription"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Subscription struct {
	Plan         Plan `json:"plan"`
	MinutesUsed  int  `json:"minutesUsed"`
	MinutesLimit int  `json:"minutesLimit"`
}

// TelephonyConfig holds the credentials used to place calls on the user's
// provider account. Configured-ness is derived, never stored.
type TelephonyConfig struct {
	AccountID         string
	AuthSecret        string
	OriginatingNumber string
}

func (t TelephonyConfig) IsConfigured() bool {
	return strings.TrimSpace(t.AccountID) != "" &&
		strings.TrimSpace(t.AuthSecret) != "" &&
		strings.TrimSpace(t.OriginatingNumber) != ""
}

// MarshalJSON never writes the secret.
func (t TelephonyConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AccountID         string `json:"accountId"`
		OriginatingNumber string `json:"phoneNumber"`
		AuthSecretSet     bool   `json:"authTokenSet"`
		IsConfigured      bool   `json:"isConfigured"`
	}{
		AccountID:         t.AccountID,
		OriginatingNumber: t.OriginatingNumber,
		AuthSecretSet:     strings.TrimSpace(t.AuthSecret) != "",
		IsConfigured:      t.IsConfigured(),
	})
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
