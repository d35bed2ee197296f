package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
// A single mutex stands in for the row lock Postgres takes.
type MemoryRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*memRow

	// Writes counts row updates; tests use it to prove replays do not write.
	Writes int
}

type memRow struct {
	seq int
	log CallLog
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{rows: map[string]*memRow{}} }

func copyLog(c CallLog) CallLog {
	c.Responses = append(Responses(nil), c.Responses...)
	if c.EndedAt != nil {
		t := *c.EndedAt
		c.EndedAt = &t
	}
	return c
}

func (r *MemoryRepo) Create(_ context.Context, c CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.rows[c.ID] = &memRow{seq: r.seq, log: copyLog(c)}
	return nil
}

func (r *MemoryRepo) SetProviderCallID(_ context.Context, id, providerCallID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range r.rows {
		if otherID != id && other.log.ProviderCallID == providerCallID {
			return ErrDuplicateProviderCallID
		}
	}
	if row.log.ProviderCallID != "" {
		return nil
	}
	row.log.ProviderCallID = providerCallID
	row.log.UpdatedAt = now
	r.Writes++
	return nil
}

func (r *MemoryRepo) MarkFailed(_ context.Context, id, reason string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	if row.log.Status.IsTerminal() {
		return nil
	}
	row.log.Status = StatusFailed
	row.log.FailureReason = reason
	if row.log.EndedAt == nil {
		t := now
		row.log.EndedAt = &t
	}
	row.log.UpdatedAt = now
	r.Writes++
	return nil
}

func (r *MemoryRepo) Reconcile(_ context.Context, providerCallID string, fn ReconcileFunc) (CallLog, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if providerCallID == "" || row.log.ProviderCallID != providerCallID {
			continue
		}
		next, changed := fn(copyLog(row.log))
		if changed {
			row.log = copyLog(next)
			r.Writes++
		}
		return copyLog(row.log), changed, nil
	}
	return CallLog{}, false, ErrNotFound
}

func (r *MemoryRepo) ListByBot(_ context.Context, userID, botID string, limit int) ([]CallLog, error) {
	return r.list(limit, func(c CallLog) bool { return c.UserID == userID && c.BotID == botID }), nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]CallLog, error) {
	return r.list(limit, func(c CallLog) bool { return c.UserID == userID }), nil
}

// Snapshot returns every row for one owner, newest first.
func (r *MemoryRepo) Snapshot(userID string) []CallLog {
	return r.list(0, func(c CallLog) bool { return c.UserID == userID })
}

func (r *MemoryRepo) Get(id string) (CallLog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return CallLog{}, false
	}
	return copyLog(row.log), true
}

func (r *MemoryRepo) list(limit int, keep func(CallLog) bool) []CallLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*memRow
	for _, row := range r.rows {
		if keep(row.log) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.log.CreatedAt.Equal(b.log.CreatedAt) {
			return a.log.CreatedAt.After(b.log.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]CallLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, copyLog(row.log))
	}
	return out
}
