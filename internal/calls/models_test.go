package calls

import (
	"encoding/json"
	"errors"
	"testing"

	"voicebot-platform/internal/apperr"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"completed":   StatusCompleted,
		"COMPLETED":   StatusCompleted,
		"no_answer":   StatusNoAnswer,
		"in_progress": StatusInProgress,
		" busy ":      StatusBusy,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
	if _, err := ParseStatus("canceled"); err == nil {
		t.Fatalf("expected canceled to be rejected")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer} {
		if !s.IsTerminal() {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusRinging, StatusInProgress} {
		if s.IsTerminal() {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	good := map[string]string{
		"+1 (555) 123-4567": "+15551234567",
		"919876543210":      "+919876543210",
		"+44.20.7946.0958":  "+442079460958",
	}
	for in, want := range good {
		got, err := NormalizePhone(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}

	for _, in := range []string{"", "12345", "+0123456789", "+1555abc4567", "1234567890123456"} {
		if _, err := NormalizePhone(in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%q: expected validation error, got %v", in, err)
		}
	}
}

func TestResponses_KeepDocumentOrder(t *testing.T) {
	var r Responses
	if err := json.Unmarshal([]byte(`{"zeta":"yes","alpha":"no","mid":3,"skip":null}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Responses{{"zeta", "yes"}, {"alpha", "no"}, {"mid", "3"}, {"skip", ""}}
	if !r.Equal(want) {
		t.Fatalf("unexpected responses %+v", r)
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"zeta":"yes","alpha":"no","mid":"3","skip":""}` {
		t.Fatalf("unexpected encoding %s", out)
	}
	if r.Transcript() != "zeta: yes\nalpha: no\nmid: 3\nskip: " {
		t.Fatalf("unexpected transcript %q", r.Transcript())
	}
}

func TestResponses_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	var r Responses
	if err := json.Unmarshal([]byte(`{"q1":"a","q2":"b","q1":"c"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.Equal(Responses{{"q1", "c"}, {"q2", "b"}}) {
		t.Fatalf("unexpected responses %+v", r)
	}
}

func TestResponses_RejectsNonObject(t *testing.T) {
	var r Responses
	if err := json.Unmarshal([]byte(`["q1","a"]`), &r); !errors.Is(err, ErrResponsesNotObject) {
		t.Fatalf("expected ErrResponsesNotObject for array, got %v", err)
	}
	if err := json.Unmarshal([]byte(`"q1"`), &r); err == nil {
		t.Fatalf("expected error for string")
	}
}

func TestResponses_EmptyTranscript(t *testing.T) {
	if (Responses{}).Transcript() != "" {
		t.Fatalf("expected empty transcript")
	}
	out, _ := json.Marshal(Responses{})
	if string(out) != "{}" {
		t.Fatalf("expected {}, got %s", out)
	}
}
