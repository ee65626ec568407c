package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabledPassesThrough(t *testing.T) {
	SetEnabled(false)
	in := "caller +91 98765 43210 mailto shop@example.com"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactMasksPhoneAndEmail(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	in := "caller +91 98765 43210 mailto shop@example.com"
	got := Text(in)
	if strings.Contains(got, "98765") {
		t.Fatalf("phone body leaked: %q", got)
	}
	if strings.Contains(got, "shop@example.com") {
		t.Fatalf("email leaked: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_PHONE:210]") {
		t.Fatalf("phone tail missing for correlation: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_EMAIL]") {
		t.Fatalf("email marker missing: %q", got)
	}
}

func TestRedactSpeechTranscript(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("mera number 9876543210 hai, 2 kilo chawal bhejna")
	if strings.Contains(got, "9876543210") {
		t.Fatalf("number leaked: %q", got)
	}
	if !strings.Contains(got, "chawal") {
		t.Fatalf("order content must survive redaction: %q", got)
	}
}
