package bots

import (
	"context"
	"errors"
	"strings"
	"time"

	"voicebot-platform/internal/apperr"
	"voicebot-platform/internal/telephony"
	"voicebot-platform/pkg/logger"

	"github.com/google/uuid"
)

// AudioCleaner removes pre-rendered audio on the engine side.
type AudioCleaner interface {
	DeleteAudio(ctx context.Context, slug string, keys []string) (telephony.DeleteAudioResult, error)
}

// StatsSource computes per-bot call statistics for one owner, keyed by bot id.
type StatsSource interface {
	BotStats(ctx context.Context, userID string) (map[string]Stats, error)
}

type Service struct {
	repo    Repository
	cleaner AudioCleaner
	stats   StatsSource
	clock   func() time.Time
}

func NewService(repo Repository, cleaner AudioCleaner, stats StatsSource) *Service {
	return &Service{repo: repo, cleaner: cleaner, stats: stats, clock: time.Now}
}

func (s *Service) now() time.Time { return s.clock().UTC().Truncate(time.Microsecond) }

type CreateInput struct {
	Name                string       `json:"name"`
	Description         string       `json:"description"`
	VoiceType           VoiceType    `json:"voiceType"`
	Language            string       `json:"language"`
	RecognitionLanguage string       `json:"recognitionLanguage"`
	SystemPrompt        string       `json:"systemPrompt"`
	Greeting            string       `json:"greeting"`
	Personality         Personality  `json:"personality"`
	Script              []ScriptItem `json:"scriptFlow"`
}

// UpdateInput is a partial update; nil fields are left alone.
type UpdateInput struct {
	Name                *string       `json:"name"`
	Description         *string       `json:"description"`
	VoiceType           *VoiceType    `json:"voiceType"`
	Language            *string       `json:"language"`
	RecognitionLanguage *string       `json:"recognitionLanguage"`
	SystemPrompt        *string       `json:"systemPrompt"`
	Greeting            *string       `json:"greeting"`
	Personality         *Personality  `json:"personality"`
	Script              *[]ScriptItem `json:"scriptFlow"`
	IsActive            *bool         `json:"isActive"`
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func trimScript(items []ScriptItem) []ScriptItem {
	out := make([]ScriptItem, 0, len(items))
	for _, it := range items {
		it.Key = strings.TrimSpace(it.Key)
		it.Text = strings.TrimSpace(it.Text)
		it.Hints = strings.TrimSpace(it.Hints)
		out = append(out, it)
	}
	return out
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Bot, error) {
	now := s.now()
	b := Bot{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Name:                strings.TrimSpace(in.Name),
		Description:         strings.TrimSpace(in.Description),
		VoiceType:           VoiceType(orDefault(string(in.VoiceType), string(VoiceFemale))),
		Language:            orDefault(in.Language, DefaultLanguage),
		RecognitionLanguage: orDefault(in.RecognitionLanguage, DefaultLanguage),
		SystemPrompt:        strings.TrimSpace(in.SystemPrompt),
		Greeting:            orDefault(in.Greeting, DefaultGreeting),
		Personality:         Personality(orDefault(string(in.Personality), string(PersonalityProfessional))),
		Script:              trimScript(in.Script),
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := validateBot(b); err != nil {
		return Bot{}, err
	}

	// Six random base36 chars rarely collide; a few attempts is plenty.
	for attempt := 0; attempt < 3; attempt++ {
		slug, err := NewSlug(b.Name)
		if err != nil {
			return Bot{}, apperr.Persistence("generate slug", err)
		}
		b.Slug = slug
		err = s.repo.Create(ctx, b)
		if err == nil {
			logger.From(ctx).Info("bot created", "bot_id", b.ID, "user_id", userID, "slug", b.Slug)
			return b, nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return Bot{}, apperr.Persistence("create bot", err)
		}
	}
	return Bot{}, apperr.Conflict("could not allocate a unique slug, try again")
}

func (s *Service) List(ctx context.Context, userID string) ([]Bot, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("list bots", err)
	}
	if err := s.attachStats(ctx, userID, list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []Bot{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Bot, error) {
	b, err := s.load(ctx, userID, id)
	if err != nil {
		return Bot{}, err
	}
	one := []Bot{b}
	if err := s.attachStats(ctx, userID, one); err != nil {
		return Bot{}, err
	}
	return one[0], nil
}

func (s *Service) load(ctx context.Context, userID, id string) (Bot, error) {
	b, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Bot{}, apperr.NotFound("bot not found")
		}
		return Bot{}, apperr.Persistence("load bot", err)
	}
	return b, nil
}

// Update applies a partial update. Changing the script clears the audio flag
// and asks the engine to drop audio for removed or reworded lines.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Bot, error) {
	cur, err := s.load(ctx, userID, id)
	if err != nil {
		return Bot{}, err
	}

	next := cur
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
	}
	if in.VoiceType != nil {
		next.VoiceType = *in.VoiceType
	}
	if in.Language != nil {
		next.Language = orDefault(*in.Language, DefaultLanguage)
	}
	if in.RecognitionLanguage != nil {
		next.RecognitionLanguage = orDefault(*in.RecognitionLanguage, DefaultLanguage)
	}
	if in.SystemPrompt != nil {
		next.SystemPrompt = strings.TrimSpace(*in.SystemPrompt)
	}
	if in.Greeting != nil {
		next.Greeting = orDefault(*in.Greeting, DefaultGreeting)
	}
	if in.Personality != nil {
		next.Personality = *in.Personality
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}

	var stale []string
	if in.Script != nil {
		next.Script = trimScript(*in.Script)
		if !sameScript(cur.Script, next.Script) {
			next.HasAudioGenerated = false
			stale = staleAudioKeys(cur.Script, next.Script)
		}
	}

	if err := validateBot(next); err != nil {
		return Bot{}, err
	}
	next.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, next); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Bot{}, apperr.NotFound("bot not found")
		}
		return Bot{}, apperr.Persistence("update bot", err)
	}

	s.dropAudio(ctx, next, stale)
	return s.Get(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	b, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("bot not found")
		}
		return apperr.Persistence("delete bot", err)
	}

	keys := make([]string, 0, len(b.Script))
	for _, it := range b.Script {
		keys = append(keys, it.Key)
	}
	s.dropAudio(ctx, b, keys)
	logger.From(ctx).Info("bot deleted", "bot_id", id, "user_id", userID)
	return nil
}

// dropAudio is best-effort: the bot row is already saved.
func (s *Service) dropAudio(ctx context.Context, b Bot, keys []string) {
	if s.cleaner == nil || len(keys) == 0 || b.Slug == "" {
		return
	}
	log := logger.From(ctx).With("bot_id", b.ID, "slug", b.Slug)
	res, err := s.cleaner.DeleteAudio(ctx, b.Slug, keys)
	if err != nil {
		log.Warn("delete stale audio failed", "keys", keys, "err", err)
		return
	}
	if len(res.Failed) > 0 {
		log.Warn("some stale audio was not deleted", "failed", res.Failed)
	}
	log.Debug("stale audio deleted", "deleted", res.Deleted)
}

func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	for _, b := range list {
		d.TotalBots++
		if b.IsActive {
			d.ActiveBots++
		}
		d.TotalCalls += b.Stats.TotalCalls
		d.TotalMinutes += b.Stats.TotalMinutes
	}
	return d, nil
}

func (s *Service) attachStats(ctx context.Context, userID string, list []Bot) error {
	if s.stats == nil || len(list) == 0 {
		return nil
	}
	byBot, err := s.stats.BotStats(ctx, userID)
	if err != nil {
		return apperr.Persistence("load bot stats", err)
	}
	for i := range list {
		list[i].Stats = byBot[list[i].ID]
	}
	return nil
}
