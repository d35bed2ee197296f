package reporting

import (
	"context"
	"errors"
	"math"

	"voicebot-platform/internal/bots"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must filter by owner.
// - Totals come from call_logs; nothing here is cached or stored back.
type Repository interface {
	CallTotalsByBot(ctx context.Context, userID string) ([]BotCallTotals, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// BotStats computes stats for every bot of userID that has at least one call.
// Bots without calls are absent from the map and read as zero stats.
func (s *Service) BotStats(ctx context.Context, userID string) (map[string]bots.Stats, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.CallTotalsByBot(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bots.Stats, len(rows))
	for _, t := range rows {
		out[t.BotID] = statsFrom(t)
	}
	return out, nil
}

// statsFrom: minutes round up per bot, average is over finished calls,
// success rate is a whole percentage of finished calls that completed.
func statsFrom(t BotCallTotals) bots.Stats {
	st := bots.Stats{
		TotalCalls:   t.Calls,
		TotalMinutes: int(math.Ceil(float64(t.DurationSeconds) / 60)),
	}
	if t.Terminal > 0 {
		st.AvgDuration = math.Round(float64(t.DurationSeconds) / float64(t.Terminal))
		st.SuccessRate = math.Round(float64(t.Completed) * 100 / float64(t.Terminal))
	}
	return st
}
