package reporting

import (
	"context"
	"errors"
	"sort"

	"voicebot-platform/internal/calls"
)

// MemoryRepo aggregates over an in-memory call log source for tests and
// local runs. *calls.MemoryRepo.Snapshot fits Source.
type MemoryRepo struct {
	Source func(userID string) []calls.CallLog
}

func NewMemoryRepo(source func(userID string) []calls.CallLog) *MemoryRepo {
	return &MemoryRepo{Source: source}
}

func (r *MemoryRepo) CallTotalsByBot(_ context.Context, userID string) ([]BotCallTotals, error) {
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	if r.Source == nil {
		return nil, nil
	}
	byBot := map[string]*BotCallTotals{}
	for _, c := range r.Source(userID) {
		if c.UserID != userID {
			continue
		}
		t, ok := byBot[c.BotID]
		if !ok {
			t = &BotCallTotals{BotID: c.BotID}
			byBot[c.BotID] = t
		}
		t.Calls++
		t.DurationSeconds += c.Duration
		if c.Status.IsTerminal() {
			t.Terminal++
		}
		if c.Status == calls.StatusCompleted {
			t.Completed++
		}
	}
	out := make([]BotCallTotals, 0, len(byBot))
	for _, t := range byBot {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BotID < out[j].BotID })
	return out, nil
}
