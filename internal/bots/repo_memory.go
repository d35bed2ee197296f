package bots

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Bot
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]Bot{}} }

func clone(b Bot) Bot {
	b.Script = append([]ScriptItem(nil), b.Script...)
	return b
}

func (r *MemoryRepo) Create(_ context.Context, b Bot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Slug == b.Slug {
			return ErrSlugTaken
		}
	}
	r.byID[b.ID] = clone(b)
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, userID, id string) (Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || b.UserID != userID {
		return Bot{}, ErrNotFound
	}
	return clone(b), nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string) ([]Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Bot
	for _, b := range r.byID {
		if b.UserID == userID {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(_ context.Context, b Bot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[b.ID]
	if !ok || cur.UserID != b.UserID {
		return ErrNotFound
	}
	b.Slug, b.CreatedAt = cur.Slug, cur.CreatedAt
	r.byID[b.ID] = clone(b)
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || b.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) MarkAudioGenerated(_ context.Context, userID, id string, seenUpdatedAt, now time.Time) (Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || b.UserID != userID {
		return Bot{}, ErrNotFound
	}
	if !b.UpdatedAt.Equal(seenUpdatedAt) {
		return Bot{}, ErrStale
	}
	b.HasAudioGenerated, b.UpdatedAt = true, now
	r.byID[id] = b
	return clone(b), nil
}
