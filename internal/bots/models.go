package bots

import "time"

type VoiceType string

const (
	VoiceMale    VoiceType = "male"
	VoiceFemale  VoiceType = "female"
	VoiceNeutral VoiceType = "neutral"
)

type Personality string

const (
	PersonalityProfessional Personality = "professional"
	PersonalityFriendly     Personality = "friendly"
	PersonalityCasual       Personality = "casual"
	PersonalityFormal       Personality = "formal"
)

const (
	DefaultLanguage = "en-US"
	DefaultGreeting = "Hello! How can I assist you today?"
)

// ScriptItem is one line of a bot's call script. Question items collect an
// answer that comes back keyed by Key.
type ScriptItem struct {
	Key        string `json:"key"`
	Text       string `json:"text"`
	Hints      string `json:"hints"`
	IsQuestion bool   `json:"is_question"`
}

// Bot is a user-owned voice bot configuration.
type Bot struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"userId"`
	Name                string       `json:"name"`
	Description         string       `json:"description"`
	VoiceType           VoiceType    `json:"voiceType"`
	Language            string       `json:"language"`
	RecognitionLanguage string       `json:"recognitionLanguage"`
	SystemPrompt        string       `json:"systemPrompt"`
	Greeting            string       `json:"greeting"`
	Personality         Personality  `json:"personality"`
	Script              []ScriptItem `json:"scriptFlow"`
	Slug                string       `json:"slug"`
	HasAudioGenerated   bool         `json:"hasAudioGenerated"`
	IsActive            bool         `json:"isActive"`

	// Stats is computed from call logs on read; it is not stored.
	Stats Stats `json:"stats"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Stats struct {
	TotalCalls   int     `json:"totalCalls"`
	TotalMinutes int     `json:"totalMinutes"`
	AvgDuration  float64 `json:"avgDuration"`
	SuccessRate  float64 `json:"successRate"`
}

// Dashboard aggregates a user's bots and their calls.
type Dashboard struct {
	TotalBots    int `json:"totalBots"`
	ActiveBots   int `json:"activeBots"`
	TotalCalls   int `json:"totalCalls"`
	TotalMinutes int `json:"totalMinutes"`
}
