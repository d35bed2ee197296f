package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxEngineBody = 1 << 20

// HTTPEngine talks JSON over HTTP to the call-handling engine.
// Every request is bounded by the client timeout.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEngine) Name() string { return "callengine" }

// HealthCheck succeeds when the engine answers at all with a non-5xx status.
func (e *HTTPEngine) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxEngineBody))
	if resp.StatusCode >= 500 {
		return &EngineError{StatusCode: resp.StatusCode}
	}
	return nil
}

type scriptPayload struct {
	Slug                string       `json:"slug"`
	Name                string       `json:"name"`
	Language            string       `json:"language"`
	VoiceType           string       `json:"voice_type"`
	RecognitionLanguage string       `json:"recognition_language,omitempty"`
	Flow                []ScriptLine `json:"flow"`
}

func toScriptPayload(s Script) scriptPayload {
	flow := s.Flow
	if flow == nil {
		flow = []ScriptLine{}
	}
	return scriptPayload{
		Slug:                s.Slug,
		Name:                s.Name,
		Language:            s.Language,
		VoiceType:           s.VoiceType,
		RecognitionLanguage: s.RecognitionLanguage,
		Flow:                flow,
	}
}

type triggerRequest struct {
	PhoneNumber string        `json:"phone_number"`
	ScriptSlug  string        `json:"script_slug"`
	AccountSID  string        `json:"twilio_account_sid"`
	AuthToken   string        `json:"twilio_auth_token"`
	FromNumber  string        `json:"twilio_phone"`
	Greeting    string        `json:"greeting,omitempty"`
	ScriptData  scriptPayload `json:"script_data"`
}

type triggerResponse struct {
	Success bool   `json:"success"`
	CallSID string `json:"call_sid"`
	Status  string `json:"status"`
}

func (e *HTTPEngine) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	body := triggerRequest{
		PhoneNumber: req.To,
		ScriptSlug:  req.Script.Slug,
		AccountSID:  req.Credentials.AccountID,
		AuthToken:   req.Credentials.AuthSecret,
		FromNumber:  req.Credentials.FromNumber,
		Greeting:    req.Greeting,
		ScriptData:  toScriptPayload(req.Script),
	}
	var out triggerResponse
	if err := e.post(ctx, "/calls/trigger", body, &out); err != nil {
		return PlaceCallResult{}, err
	}
	if !out.Success {
		return PlaceCallResult{}, fmt.Errorf("%w: success=false", ErrEngineRejected)
	}
	if strings.TrimSpace(out.CallSID) == "" {
		return PlaceCallResult{}, fmt.Errorf("%w: empty call_sid", ErrMalformedResponse)
	}
	return PlaceCallResult{ProviderCallID: out.CallSID, Status: out.Status}, nil
}

type generateAudioResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VoiceUsed string `json:"voice_used"`
}

func (e *HTTPEngine) GenerateAudio(ctx context.Context, script Script) (GenerateAudioResult, error) {
	body := struct {
		ScriptData scriptPayload `json:"script_data"`
	}{ScriptData: toScriptPayload(script)}

	var out generateAudioResponse
	if err := e.post(ctx, "/calls/"+url.PathEscape(script.Slug)+"/generate-audio", body, &out); err != nil {
		return GenerateAudioResult{}, err
	}
	if !out.Success {
		return GenerateAudioResult{}, fmt.Errorf("%w: success=false", ErrEngineRejected)
	}
	return GenerateAudioResult{Message: out.Message, VoiceUsed: out.VoiceUsed}, nil
}

type deleteAudioResponse struct {
	Message string           `json:"message"`
	Deleted []string         `json:"deleted"`
	Failed  []failedArtifact `json:"failed"`
}

type failedArtifact struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (e *HTTPEngine) DeleteAudio(ctx context.Context, slug string, keys []string) (DeleteAudioResult, error) {
	body := struct {
		Keys []string `json:"keys"`
	}{Keys: keys}

	var out deleteAudioResponse
	if err := e.post(ctx, "/calls/"+url.PathEscape(slug)+"/delete-audio", body, &out); err != nil {
		return DeleteAudioResult{}, err
	}
	res := DeleteAudioResult{Deleted: out.Deleted}
	for _, f := range out.Failed {
		res.Failed = append(res.Failed, f.File)
	}
	return res, nil
}

// EngineError carries a non-2xx response. It unwraps to ErrEngineRejected.
type EngineError struct {
	StatusCode int
	Detail     string
}

func (e *EngineError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("call engine status %d", e.StatusCode)
	}
	return fmt.Sprintf("call engine status %d: %s", e.StatusCode, e.Detail)
}

func (e *EngineError) Unwrap() error { return ErrEngineRejected }

func (e *HTTPEngine) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEngineBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrMalformedResponse, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &EngineError{StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// errorDetail pulls the {"detail": ...} message the engine uses for errors.
func errorDetail(raw []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(body.Detail)
		return string(b)
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// classifyTransportErr marks dial failures as ErrEngineUnreachable.
// Anything after the connection is up (timeouts, resets) stays ambiguous.
func classifyTransportErr(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrEngineUnreachable, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrEngineUnreachable, err)
	}
	return err
}
