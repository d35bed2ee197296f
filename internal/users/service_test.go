package users

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"voicebot-platform/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

type fakeTokens struct{}

func (fakeTokens) Issue(_ time.Time, userID, _ string) (string, error) { return "tok-" + userID, nil }

type recordingAuditor struct{ calls []bool }

func (a *recordingAuditor) LogTelephonyUpdated(_ context.Context, _ string, configured bool) error {
	a.calls = append(a.calls, configured)
	return nil
}

func newTestService() (*Service, *MemoryRepo, *recordingAuditor) {
	repo := NewMemoryRepo()
	aud := &recordingAuditor{}
	svc := NewService(repo, fakeTokens{}, aud)
	svc.cost = bcrypt.MinCost
	svc.clock = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, repo, aud
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", sess.User.Email)
	}
	if sess.User.Subscription.MinutesLimit != DefaultMinutesLimit || sess.User.Subscription.Plan != PlanFree {
		t.Fatalf("unexpected subscription %+v", sess.User.Subscription)
	}
	if sess.Token != "tok-"+sess.User.ID {
		t.Fatalf("unexpected token %q", sess.Token)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "x"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	in := RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, in); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	for _, in := range []RegisterInput{
		{Name: "A", Email: "a@example.com", Password: "secret1"},
		{Name: "Ada", Email: "not-an-email", Password: "secret1"},
		{Name: "Ada", Email: "a@example.com", Password: "123"},
	} {
		if _, err := svc.Register(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%+v: expected validation error, got %v", in, err)
		}
	}
}

func TestUpdateTelephony_DerivesConfigured(t *testing.T) {
	svc, _, aud := newTestService()
	ctx := context.Background()
	sess, _ := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})

	u, err := svc.UpdateTelephony(ctx, sess.User.ID, TelephonyInput{AccountID: "AC1", AuthSecret: "tok", OriginatingNumber: "+15550001111"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !u.Telephony.IsConfigured() {
		t.Fatalf("expected configured")
	}

	u, _ = svc.UpdateTelephony(ctx, sess.User.ID, TelephonyInput{AccountID: "AC1", AuthSecret: "  ", OriginatingNumber: "+15550001111"})
	if u.Telephony.IsConfigured() {
		t.Fatalf("blank secret must not count as configured")
	}
	if len(aud.calls) != 2 || !aud.calls[0] || aud.calls[1] {
		t.Fatalf("unexpected audit calls %v", aud.calls)
	}
}

func TestUserJSON_HidesSecrets(t *testing.T) {
	u := User{
		ID:           "u1",
		PasswordHash: "hash",
		Telephony:    TelephonyConfig{AccountID: "AC1", AuthSecret: "very-secret", OriginatingNumber: "+15550001111"},
	}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "very-secret") || strings.Contains(s, "hash") {
		t.Fatalf("secret leaked: %s", s)
	}
	if !strings.Contains(s, `"isConfigured":true`) {
		t.Fatalf("expected derived isConfigured: %s", s)
	}
}
