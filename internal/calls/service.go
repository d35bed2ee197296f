package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicebot-platform/internal/apperr"
	"voicebot-platform/internal/bots"
	"voicebot-platform/internal/telephony"
	"voicebot-platform/internal/users"
	"voicebot-platform/pkg/logger"

	"github.com/aniladanir/retry"
	"github.com/google/uuid"
)

// UserLookup loads the caller's account, including telephony credentials.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// SlotLimiter caps concurrent triggers per user. *utils.CallSlots satisfies it.
type SlotLimiter interface {
	Acquire(ctx context.Context, owner string) (bool, error)
	Release(ctx context.Context, owner string) error
}

// Auditor records trigger and audio events. Failures never fail the request.
type Auditor interface {
	LogCallTriggered(ctx context.Context, userID, botID, callID, outcome string) error
	LogAudioGenerated(ctx context.Context, userID, botID, voice string) error
}

// retryFunc runs fn until it returns true or attempts run out and reports
// whether fn terminated.
type retryFunc func(ctx context.Context, fn func(attempt int) (terminate bool)) bool

type Service struct {
	repo    Repository
	bots    bots.Repository
	users   UserLookup
	engine  telephony.CallEngine
	slots   SlotLimiter
	auditor Auditor

	retry        retryFunc
	placeTimeout time.Duration
	clock        func() time.Time
}

type Deps struct {
	Repo    Repository
	Bots    bots.Repository
	Users   UserLookup
	Engine  telephony.CallEngine
	Slots   SlotLimiter
	Auditor Auditor

	// MaxPlaceAttempts bounds PlaceCall attempts; only unreachable-engine
	// failures are retried.
	MaxPlaceAttempts int
	// PlaceTimeout bounds placement plus the provider id write-back once the
	// call log exists. It is not tied to the caller's context.
	PlaceTimeout time.Duration
}

func NewService(d Deps) (*Service, error) {
	if d.Repo == nil || d.Bots == nil || d.Users == nil || d.Engine == nil {
		return nil, errors.New("calls: repo, bots, users and engine are required")
	}
	attempts := d.MaxPlaceAttempts
	if attempts <= 0 {
		attempts = 2
	}
	placeTimeout := d.PlaceTimeout
	if placeTimeout <= 0 {
		placeTimeout = 45 * time.Second
	}
	retrier, err := retry.New(retry.WithMaxAttemps(attempts))
	if err != nil {
		return nil, fmt.Errorf("calls: init retrier: %w", err)
	}
	return &Service{
		repo:    d.Repo,
		bots:    d.Bots,
		users:   d.Users,
		engine:  d.Engine,
		slots:   d.Slots,
		auditor: d.Auditor,
		retry: func(ctx context.Context, fn func(attempt int) bool) bool {
			return <-retrier.Retry(ctx, fn, true)
		},
		placeTimeout: placeTimeout,
		clock:        time.Now,
	}, nil
}

func (s *Service) now() time.Time { return s.clock().UTC().Truncate(time.Microsecond) }

type TriggerResult struct {
	CallID         string `json:"callId"`
	ProviderCallID string `json:"callSid"`
	Status         Status `json:"status"`
}

// Trigger places one outbound call for the user's bot. Every call that gets
// past the preconditions leaves exactly one CallLog row behind.
func (s *Service) Trigger(ctx context.Context, userID, botID, phone string) (TriggerResult, error) {
	to, err := NormalizePhone(phone)
	if err != nil {
		return TriggerResult{}, err
	}

	bot, err := s.ownedBot(ctx, userID, botID)
	if err != nil {
		return TriggerResult{}, err
	}
	if len(bot.Script) == 0 {
		return TriggerResult{}, apperr.Precondition("bot must have a script to make calls")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return TriggerResult{}, apperr.NotFound("user not found")
		}
		return TriggerResult{}, apperr.Persistence("load user", err)
	}
	if !user.Telephony.IsConfigured() {
		return TriggerResult{}, apperr.Precondition("telephony not configured")
	}
	if !bot.HasAudioGenerated {
		return TriggerResult{}, apperr.Precondition("audio not generated")
	}

	release, err := s.acquireSlot(ctx, userID)
	if err != nil {
		return TriggerResult{}, err
	}
	defer release()

	log := logger.From(ctx).With("user_id", userID, "bot_id", bot.ID)

	now := s.now()
	row := CallLog{
		ID:          uuid.NewString(),
		UserID:      userID,
		BotID:       bot.ID,
		BotName:     bot.Name,
		PhoneNumber: to,
		Direction:   DirectionOutbound,
		Status:      StatusQueued,
		Responses:   Responses{},
		Sentiment:   SentimentUnknown,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return TriggerResult{}, apperr.Persistence("create call log", err)
	}
	log = log.With("call_id", row.ID)

	// From here the row exists. If the caller disconnects after the engine
	// dialed, the provider id must still be recorded or the completion
	// webhook has nothing to match.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.placeTimeout)
	defer cancel()

	placed, err := s.place(ctx, telephony.PlaceCallRequest{
		To: to,
		Credentials: telephony.Credentials{
			AccountID:  user.Telephony.AccountID,
			AuthSecret: user.Telephony.AuthSecret,
			FromNumber: user.Telephony.OriginatingNumber,
		},
		Greeting: bot.Greeting,
		Script:   engineScript(bot),
	})
	if err != nil {
		log.Warn("call placement failed", "err", err)
		s.markFailed(ctx, row.ID, "call engine: "+err.Error())
		s.auditTrigger(ctx, userID, bot.ID, row.ID, "placement_failed")
		return TriggerResult{}, apperr.Upstream("failed to place call, please ensure the call engine is running", err)
	}
	log = log.With("provider_call_id", placed.ProviderCallID)

	if err := s.repo.SetProviderCallID(ctx, row.ID, placed.ProviderCallID, s.now()); err != nil {
		// The call is ringing but the webhook will not find this row.
		log.Error("persist provider call id failed", "err", err)
		s.markFailed(ctx, row.ID, "could not record provider call id")
		s.auditTrigger(ctx, userID, bot.ID, row.ID, "persist_failed")
		return TriggerResult{}, apperr.Persistence("record provider call id", err)
	}

	log.Info("call placed")
	s.auditTrigger(ctx, userID, bot.ID, row.ID, "placed")
	return TriggerResult{CallID: row.ID, ProviderCallID: placed.ProviderCallID, Status: StatusQueued}, nil
}

// place calls the engine, retrying only when the engine could not be reached.
func (s *Service) place(ctx context.Context, req telephony.PlaceCallRequest) (telephony.PlaceCallResult, error) {
	var (
		res     telephony.PlaceCallResult
		lastErr error
	)
	ok := s.retry(ctx, func(attempt int) bool {
		res, lastErr = s.engine.PlaceCall(ctx, req)
		if lastErr == nil {
			return true
		}
		if errors.Is(lastErr, telephony.ErrEngineUnreachable) {
			logger.From(ctx).Debug("call engine unreachable, will retry", "attempt", attempt, "err", lastErr)
			return false
		}
		return true
	})
	if lastErr != nil {
		return telephony.PlaceCallResult{}, lastErr
	}
	if !ok {
		return telephony.PlaceCallResult{}, telephony.ErrEngineUnreachable
	}
	return res, nil
}

func (s *Service) acquireSlot(ctx context.Context, userID string) (func(), error) {
	noop := func() {}
	if s.slots == nil {
		return noop, nil
	}
	ok, err := s.slots.Acquire(ctx, userID)
	if err != nil {
		// Fail open: the cap protects the engine, it is not a correctness guard.
		logger.From(ctx).Warn("call slot acquire failed, continuing without cap", "user_id", userID, "err", err)
		return noop, nil
	}
	if !ok {
		return nil, apperr.Precondition("too many calls in progress, try again shortly")
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := s.slots.Release(rctx, userID); err != nil {
			logger.From(ctx).Warn("call slot release failed", "user_id", userID, "err", err)
		}
	}, nil
}

// markFailed must run even if the caller went away.
func (s *Service) markFailed(ctx context.Context, id, reason string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.MarkFailed(wctx, id, reason, s.now()); err != nil {
		logger.From(ctx).Error("mark call failed", "call_id", id, "err", err)
	}
}

func (s *Service) auditTrigger(ctx context.Context, userID, botID, callID, outcome string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogCallTriggered(ctx, userID, botID, callID, outcome); err != nil {
		logger.From(ctx).Warn("audit call trigger failed", "call_id", callID, "err", err)
	}
}

// GenerateAudio asks the engine to render the bot's script and marks the bot
// ready to call. Repeating it is harmless.
func (s *Service) GenerateAudio(ctx context.Context, userID, botID string) (bots.Bot, error) {
	bot, err := s.ownedBot(ctx, userID, botID)
	if err != nil {
		return bots.Bot{}, err
	}
	if len(bot.Script) == 0 {
		return bots.Bot{}, apperr.Precondition("bot must have a script to generate audio")
	}

	res, err := s.engine.GenerateAudio(ctx, engineScript(bot))
	if err != nil {
		logger.From(ctx).Warn("audio generation failed", "bot_id", bot.ID, "err", err)
		return bots.Bot{}, apperr.Upstream("failed to generate audio, please ensure the call engine is running", err)
	}

	updated, err := s.bots.MarkAudioGenerated(ctx, userID, bot.ID, bot.UpdatedAt, s.now())
	switch {
	case errors.Is(err, bots.ErrStale):
		return bots.Bot{}, apperr.Conflict("bot changed while audio was generated, generate again")
	case errors.Is(err, bots.ErrNotFound):
		return bots.Bot{}, apperr.NotFound("bot not found")
	case err != nil:
		return bots.Bot{}, apperr.Persistence("mark audio generated", err)
	}

	logger.From(ctx).Info("audio generated", "bot_id", bot.ID, "voice", res.VoiceUsed)
	if s.auditor != nil {
		if err := s.auditor.LogAudioGenerated(ctx, userID, bot.ID, res.VoiceUsed); err != nil {
			logger.From(ctx).Warn("audit audio generation failed", "bot_id", bot.ID, "err", err)
		}
	}
	return updated, nil
}

// Reconcile folds the engine's completion report into the matching call log.
// It never creates rows and is safe to replay.
func (s *Service) Reconcile(ctx context.Context, c Completion) (CallLog, error) {
	sid, update, err := c.validate()
	if err != nil {
		return CallLog{}, err
	}

	now := s.now()
	row, changed, err := s.repo.Reconcile(ctx, sid, func(cur CallLog) (CallLog, bool) {
		return applyCompletion(cur, update, now)
	})
	log := logger.From(ctx).With("provider_call_id", sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("completion for unknown call")
			return CallLog{}, apperr.NotFound("call log not found")
		}
		log.Error("reconcile call log failed", "err", err)
		return CallLog{}, apperr.Persistence("update call log", err)
	}

	if changed {
		log.Info("call log reconciled", "call_id", row.ID, "status", row.Status, "responses", len(row.Responses))
	} else {
		log.Debug("completion replay ignored", "call_id", row.ID)
	}
	return row, nil
}

func (s *Service) ListByBot(ctx context.Context, userID, botID string, limit int) ([]CallLog, error) {
	if _, err := s.ownedBot(ctx, userID, botID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListByBot(ctx, userID, botID, clampLimit(limit, MaxListByBot))
	if err != nil {
		return nil, apperr.Persistence("list call logs", err)
	}
	if out == nil {
		out = []CallLog{}
	}
	return out, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]CallLog, error) {
	out, err := s.repo.ListByUser(ctx, userID, clampLimit(limit, MaxListByUser))
	if err != nil {
		return nil, apperr.Persistence("list call logs", err)
	}
	if out == nil {
		out = []CallLog{}
	}
	return out, nil
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func (s *Service) ownedBot(ctx context.Context, userID, botID string) (bots.Bot, error) {
	b, err := s.bots.Get(ctx, userID, botID)
	if err != nil {
		if errors.Is(err, bots.ErrNotFound) {
			return bots.Bot{}, apperr.NotFound("bot not found")
		}
		return bots.Bot{}, apperr.Persistence("load bot", err)
	}
	return b, nil
}

func engineScript(b bots.Bot) telephony.Script {
	flow := make([]telephony.ScriptLine, 0, len(b.Script))
	for _, it := range b.Script {
		flow = append(flow, telephony.ScriptLine{Key: it.Key, Text: it.Text, Hints: it.Hints, IsQuestion: it.IsQuestion})
	}
	return telephony.Script{
		Slug:                b.Slug,
		Name:                b.Name,
		Language:            b.Language,
		VoiceType:           string(b.VoiceType),
		RecognitionLanguage: b.RecognitionLanguage,
		Flow:                flow,
	}
}
