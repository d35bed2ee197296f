package telephony

import (
	"context"
	"errors"
)

// CallEngine is the boundary to the external call-handling engine that
// dials numbers, plays the script and reports results back by webhook.
//
// Rules:
// - No engine HTTP calls outside adapters in this package.
// - Types stay engine-agnostic; wire names live in the adapter.
type CallEngine interface {
	Name() string
	HealthCheck(ctx context.Context) error

	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)
	GenerateAudio(ctx context.Context, script Script) (GenerateAudioResult, error)
	DeleteAudio(ctx context.Context, slug string, keys []string) (DeleteAudioResult, error)
}

var (
	// ErrEngineUnreachable means no request bytes reached the engine
	// (connection refused, DNS failure). Only this error is safe to retry.
	ErrEngineUnreachable = errors.New("call engine unreachable")

	// ErrEngineRejected means the engine answered with a non-2xx status or
	// reported success=false.
	ErrEngineRejected = errors.New("call engine rejected request")

	// ErrMalformedResponse means the engine answered 2xx with a body we
	// could not use.
	ErrMalformedResponse = errors.New("call engine returned malformed response")
)

// ScriptLine is one spoken prompt. Questions collect an answer keyed by Key.
type ScriptLine struct {
	Key        string `json:"key"`
	Text       string `json:"text"`
	Hints      string `json:"hints"`
	IsQuestion bool   `json:"is_question"`
}

type Script struct {
	Slug                string
	Name                string
	Language            string
	VoiceType           string
	RecognitionLanguage string
	Flow                []ScriptLine
}

// Credentials identify the caller's telephony account.
type Credentials struct {
	AccountID  string
	AuthSecret string
	FromNumber string
}

type PlaceCallRequest struct {
	To          string
	Credentials Credentials
	Greeting    string
	Script      Script
}

type PlaceCallResult struct {
	ProviderCallID string
	Status         string
}

type GenerateAudioResult struct {
	Message   string
	VoiceUsed string
}

type DeleteAudioResult struct {
	Deleted []string
	Failed  []string
}
