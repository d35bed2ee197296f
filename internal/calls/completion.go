package calls

import (
	"strings"
	"time"

	"voicebot-platform/internal/apperr"
)

// Completion is the engine's end-of-call report.
type Completion struct {
	CallSID   string    `json:"callSid"`
	Responses Responses `json:"responses"`
	Duration  *int      `json:"duration"`
	Status    string    `json:"status"`
}

type completionUpdate struct {
	responses Responses
	duration  int
	status    Status
}

// validate checks the payload without touching storage.
func (c Completion) validate() (string, completionUpdate, error) {
	sid := strings.TrimSpace(c.CallSID)
	if sid == "" {
		return "", completionUpdate{}, apperr.Validation("call SID is required")
	}

	u := completionUpdate{responses: c.Responses, status: StatusCompleted}
	if u.responses == nil {
		u.responses = Responses{}
	}
	if c.Duration != nil {
		if *c.Duration < 0 {
			return "", completionUpdate{}, apperr.Validation("duration must not be negative")
		}
		u.duration = *c.Duration
	}
	if strings.TrimSpace(c.Status) != "" {
		st, err := ParseStatus(c.Status)
		if err != nil {
			return "", completionUpdate{}, apperr.Validation(err.Error())
		}
		if !st.IsTerminal() {
			return "", completionUpdate{}, apperr.Validation("completion status must be terminal, got " + string(st))
		}
		u.status = st
	}
	return sid, u, nil
}

// applyCompletion returns the reconciled row and whether anything changed.
// EndedAt is only stamped the first time, so an identical replay is a no-op.
func applyCompletion(cur CallLog, u completionUpdate, now time.Time) (CallLog, bool) {
	next := cur
	next.Responses = u.responses
	next.Duration = u.duration
	next.Status = u.status
	next.Transcript = u.responses.Transcript()
	if next.EndedAt == nil {
		t := now
		next.EndedAt = &t
	}

	changed := cur.EndedAt == nil ||
		cur.Status != next.Status ||
		cur.Duration != next.Duration ||
		cur.Transcript != next.Transcript ||
		!cur.Responses.Equal(next.Responses)
	if !changed {
		return cur, false
	}
	next.UpdatedAt = now
	return next, true
}
