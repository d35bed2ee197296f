package audit

import (
	"context"
	"strings"
	"testing"
)

func TestService_AppendRequiresUserAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCallTriggered}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{UserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("invalid events must not be stored")
	}
}

func TestService_CapturesClientIPFromContext(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	ctx := WithClientIP(context.Background(), "1.2.3.4")
	if err := svc.LogCallTriggered(ctx, "u", "b1", "c1", "placed"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if e.Type != EventTypeCallTriggered || e.BotID != "b1" || e.CallID != "c1" {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp")
	}
	if e.Metadata != `{"outcome":"placed"}` {
		t.Fatalf("unexpected metadata %q", e.Metadata)
	}
}

func TestService_TelephonyEventHasNoSecrets(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogTelephonyUpdated(context.Background(), "u", true); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e := repo.Events()[0]
	if e.Type != EventTypeTelephonyUpdated || e.Metadata != `{"configured":true}` {
		t.Fatalf("unexpected event %+v", e)
	}
	if strings.Contains(strings.ToLower(e.Message+e.Metadata), "secret") {
		t.Fatalf("event must not mention credentials")
	}
}

func TestClientIPFromContext_Empty(t *testing.T) {
	if ClientIPFromContext(context.Background()) != "" {
		t.Fatalf("expected empty ip")
	}
	if ctx := WithClientIP(context.Background(), ""); ClientIPFromContext(ctx) != "" {
		t.Fatalf("empty ip must not be stored")
	}
}
