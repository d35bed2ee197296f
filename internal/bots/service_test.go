package bots

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"voicebot-platform/internal/apperr"
	"voicebot-platform/internal/telephony"
)

type fakeCleaner struct {
	mu    sync.Mutex
	calls map[string][]string
	err   error
}

func (f *fakeCleaner) DeleteAudio(_ context.Context, slug string, keys []string) (telephony.DeleteAudioResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string][]string{}
	}
	f.calls[slug] = append(f.calls[slug], keys...)
	return telephony.DeleteAudioResult{Deleted: keys}, f.err
}

type fixedStats map[string]Stats

func (f fixedStats) BotStats(context.Context, string) (map[string]Stats, error) { return f, nil }

func newTestService(stats StatsSource) (*Service, *MemoryRepo, *fakeCleaner) {
	repo := NewMemoryRepo()
	cleaner := &fakeCleaner{}
	svc := NewService(repo, cleaner, stats)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	svc.clock = func() time.Time { n++; return t0.Add(time.Duration(n) * time.Second) }
	return svc, repo, cleaner
}

func sampleInput() CreateInput {
	return CreateInput{
		Name:         "Customer Survey!",
		SystemPrompt: "Be polite.",
		Script: []ScriptItem{
			{Key: "intro", Text: "Hello"},
			{Key: "q1", Text: "How satisfied are you?", IsQuestion: true},
			{Key: "q2", Text: "Would you recommend us?", IsQuestion: true},
		},
	}
}

func TestCreate_AppliesDefaultsAndSlug(t *testing.T) {
	svc, _, _ := newTestService(nil)
	b, err := svc.Create(context.Background(), "u1", sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !regexp.MustCompile(`^customer_survey_[0-9a-z]{6}$`).MatchString(b.Slug) {
		t.Fatalf("unexpected slug %q", b.Slug)
	}
	if b.VoiceType != VoiceFemale || b.Personality != PersonalityProfessional || b.Language != DefaultLanguage || b.Greeting != DefaultGreeting {
		t.Fatalf("defaults not applied: %+v", b)
	}
	if !b.IsActive || b.HasAudioGenerated {
		t.Fatalf("unexpected flags: active=%v audio=%v", b.IsActive, b.HasAudioGenerated)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(nil)
	cases := []func(*CreateInput){
		func(in *CreateInput) { in.Name = "" },
		func(in *CreateInput) { in.SystemPrompt = " " },
		func(in *CreateInput) { in.VoiceType = "robot" },
		func(in *CreateInput) { in.Personality = "grumpy" },
		func(in *CreateInput) { in.Script = append(in.Script, ScriptItem{Key: "q1", Text: "dup"}) },
		func(in *CreateInput) { in.Script = []ScriptItem{{Key: "../x", Text: "t"}} },
	}
	for i, mutate := range cases {
		in := sampleInput()
		mutate(&in)
		if _, err := svc.Create(context.Background(), "u1", in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestGet_OtherOwnerIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(nil)
	b, _ := svc.Create(context.Background(), "u1", sampleInput())
	if _, err := svc.Get(context.Background(), "u2", b.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdate_ScriptChangeResetsAudioAndDropsStaleKeys(t *testing.T) {
	svc, repo, cleaner := newTestService(nil)
	ctx := context.Background()
	b, _ := svc.Create(ctx, "u1", sampleInput())

	if _, err := repo.MarkAudioGenerated(ctx, "u1", b.ID, b.UpdatedAt, b.UpdatedAt.Add(time.Second)); err != nil {
		t.Fatalf("mark audio: %v", err)
	}

	script := []ScriptItem{
		{Key: "intro", Text: "Hello"},
		{Key: "q1", Text: "How happy are you?", IsQuestion: true},
	}
	got, err := svc.Update(ctx, "u1", b.ID, UpdateInput{Script: &script})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.HasAudioGenerated {
		t.Fatalf("expected audio flag reset")
	}
	deleted := cleaner.calls[b.Slug]
	if len(deleted) != 2 || deleted[0] != "q1" || deleted[1] != "q2" {
		t.Fatalf("expected q1 (reworded) and q2 (removed) dropped, got %v", deleted)
	}
}

func TestUpdate_SameScriptKeepsAudio(t *testing.T) {
	svc, repo, cleaner := newTestService(nil)
	ctx := context.Background()
	b, _ := svc.Create(ctx, "u1", sampleInput())
	b, _ = repo.MarkAudioGenerated(ctx, "u1", b.ID, b.UpdatedAt, b.UpdatedAt.Add(time.Second))

	script := append([]ScriptItem(nil), b.Script...)
	active := false
	got, err := svc.Update(ctx, "u1", b.ID, UpdateInput{Script: &script, IsActive: &active})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.HasAudioGenerated || got.IsActive {
		t.Fatalf("unexpected flags: audio=%v active=%v", got.HasAudioGenerated, got.IsActive)
	}
	if len(cleaner.calls) != 0 {
		t.Fatalf("no audio should be deleted, got %v", cleaner.calls)
	}
}

func TestUpdate_CleanerFailureDoesNotFailUpdate(t *testing.T) {
	svc, _, cleaner := newTestService(nil)
	cleaner.err = errors.New("engine down")
	ctx := context.Background()
	b, _ := svc.Create(ctx, "u1", sampleInput())

	script := []ScriptItem{{Key: "intro", Text: "Hi there"}}
	if _, err := svc.Update(ctx, "u1", b.ID, UpdateInput{Script: &script}); err != nil {
		t.Fatalf("update should succeed despite cleaner error: %v", err)
	}
}

func TestMarkAudioGenerated_StaleRead(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()
	b, _ := svc.Create(ctx, "u1", sampleInput())
	name := "Renamed"
	if _, err := svc.Update(ctx, "u1", b.ID, UpdateInput{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.MarkAudioGenerated(ctx, "u1", b.ID, b.UpdatedAt, time.Now()); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	stats := fixedStats{}
	svc, _, _ := newTestService(stats)
	ctx := context.Background()
	a, _ := svc.Create(ctx, "u1", sampleInput())
	b, _ := svc.Create(ctx, "u1", sampleInput())
	inactive := false
	if _, err := svc.Update(ctx, "u1", b.ID, UpdateInput{IsActive: &inactive}); err != nil {
		t.Fatalf("update: %v", err)
	}
	stats[a.ID] = Stats{TotalCalls: 3, TotalMinutes: 4}
	stats[b.ID] = Stats{TotalCalls: 1, TotalMinutes: 2}

	d, err := svc.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	want := Dashboard{TotalBots: 2, ActiveBots: 1, TotalCalls: 4, TotalMinutes: 6}
	if d != want {
		t.Fatalf("expected %+v, got %+v", want, d)
	}
}

func TestDelete_DropsAllAudio(t *testing.T) {
	svc, _, cleaner := newTestService(nil)
	ctx := context.Background()
	b, _ := svc.Create(ctx, "u1", sampleInput())
	if err := svc.Delete(ctx, "u1", b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(cleaner.calls[b.Slug]) != 3 {
		t.Fatalf("expected all keys dropped, got %v", cleaner.calls[b.Slug])
	}
	if err := svc.Delete(ctx, "u1", b.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSnake(t *testing.T) {
	cases := map[string]string{
		"Customer Survey!":   "customer_survey",
		"  __Hello--World__": "hello_world",
		"日本":                 "",
		"abc123":             "abc123",
	}
	for in, want := range cases {
		if got := snake(in); got != want {
			t.Fatalf("snake(%q) = %q, want %q", in, got, want)
		}
	}
}
