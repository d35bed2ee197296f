package calls

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"voicebot-platform/internal/apperr"
)

// countingRepo proves validation happens before any storage access.
type countingRepo struct {
	*MemoryRepo
	reconciles int
}

func (r *countingRepo) Reconcile(ctx context.Context, sid string, fn ReconcileFunc) (CallLog, bool, error) {
	r.reconciles++
	return r.MemoryRepo.Reconcile(ctx, sid, fn)
}

func completion(t *testing.T, raw string) Completion {
	t.Helper()
	var c Completion
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	return c
}

func placedCall(t *testing.T, f *fixture) string {
	t.Helper()
	res, err := f.svc.Trigger(context.Background(), "u1", "b1", "+15551234567")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	return res.CallID
}

func TestReconcile_AppliesCompletion(t *testing.T) {
	f := newFixture(t)
	id := placedCall(t, f)

	row, err := f.svc.Reconcile(context.Background(), completion(t, `{"callSid":"CA123","responses":{"q2":"Yes","q1":"Great"},"duration":95}`))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if row.ID != id || row.Status != StatusCompleted || row.Duration != 95 {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Transcript != "q2: Yes\nq1: Great" {
		t.Fatalf("unexpected transcript %q", row.Transcript)
	}
	if row.EndedAt == nil {
		t.Fatalf("expected endedAt")
	}

	stored, _ := f.repo.Get(id)
	if !stored.Responses.Equal(Responses{{"q2", "Yes"}, {"q1", "Great"}}) {
		t.Fatalf("response order not preserved: %+v", stored.Responses)
	}
}

func TestReconcile_ReplayDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	id := placedCall(t, f)
	body := `{"callSid":"CA123","responses":{"q1":"Great"},"duration":30,"status":"completed"}`

	first, err := f.svc.Reconcile(context.Background(), completion(t, body))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	writes := f.repo.Writes

	second, err := f.svc.Reconcile(context.Background(), completion(t, body))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if f.repo.Writes != writes {
		t.Fatalf("replay wrote %d times", f.repo.Writes-writes)
	}
	if !second.EndedAt.Equal(*first.EndedAt) || !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("replay changed timestamps: %+v vs %+v", first, second)
	}
	if stored, _ := f.repo.Get(id); stored.Duration != 30 {
		t.Fatalf("unexpected stored row %+v", stored)
	}
}

func TestReconcile_LaterReportKeepsEndedAt(t *testing.T) {
	f := newFixture(t)
	placedCall(t, f)

	first, err := f.svc.Reconcile(context.Background(), completion(t, `{"callSid":"CA123","responses":{"q1":"Great"},"duration":30}`))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	second, err := f.svc.Reconcile(context.Background(), completion(t, `{"callSid":"CA123","responses":{},"status":"no_answer"}`))
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if !second.EndedAt.Equal(*first.EndedAt) {
		t.Fatalf("endedAt moved from %v to %v", first.EndedAt, second.EndedAt)
	}
	if second.Status != StatusNoAnswer || second.Duration != 0 || second.Transcript != "" || len(second.Responses) != 0 {
		t.Fatalf("unexpected row %+v", second)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}
}

func TestReconcile_ValidationBeforeStorage(t *testing.T) {
	f := newFixture(t)
	repo := &countingRepo{MemoryRepo: f.repo}
	f.svc.repo = repo

	bad := []string{
		`{"responses":{"q1":"a"}}`,
		`{"callSid":"   "}`,
		`{"callSid":"CA123","duration":-1}`,
		`{"callSid":"CA123","status":"ringing"}`,
		`{"callSid":"CA123","status":"canceled"}`,
	}
	for _, raw := range bad {
		_, err := f.svc.Reconcile(context.Background(), completion(t, raw))
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", raw, err)
		}
	}
	if repo.reconciles != 0 {
		t.Fatalf("storage touched %d times for invalid payloads", repo.reconciles)
	}
}

func TestReconcile_UnknownCallNeverCreatesRow(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconcile(context.Background(), completion(t, `{"callSid":"CA-missing","responses":{"q1":"a"}}`))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if rows := f.repo.Snapshot("u1"); len(rows) != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReconcile_DoesNotTouchOtherRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := CallLog{ID: "other", UserID: "u1", BotID: "b1", ProviderCallID: "CA999", Status: StatusQueued, CreatedAt: t0, StartedAt: t0}
	if err := f.repo.Create(ctx, other); err != nil {
		t.Fatalf("seed: %v", err)
	}
	placedCall(t, f)

	if _, err := f.svc.Reconcile(ctx, completion(t, `{"callSid":"CA123","duration":12}`)); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	got, _ := f.repo.Get("other")
	if got.Status != StatusQueued || got.EndedAt != nil || !got.UpdatedAt.Equal(other.UpdatedAt) {
		t.Fatalf("unrelated row changed: %+v", got)
	}
}

func TestApplyCompletion_FailedRowKeepsEndedAt(t *testing.T) {
	ended := t0.Add(time.Minute)
	cur := CallLog{Status: StatusFailed, EndedAt: &ended, Responses: Responses{}}
	next, changed := applyCompletion(cur, completionUpdate{responses: Responses{}, status: StatusCompleted}, t0.Add(time.Hour))
	if !changed || next.Status != StatusCompleted {
		t.Fatalf("expected status change, got %+v changed=%v", next, changed)
	}
	if !next.EndedAt.Equal(ended) {
		t.Fatalf("endedAt overwritten")
	}
}
