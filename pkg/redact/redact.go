package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// SetEnabled toggles PII redaction process-wide.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled reports whether redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails and phone numbers when enabled. Caller numbers and
// speech transcripts pass through every log line of the intake pipeline,
// so channels route them through here before logging. Phone numbers keep
// their last three digits so one caller stays traceable across log lines.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllStringFunc(out, maskPhone)
	return out
}

func maskPhone(m string) string {
	var digits []rune
	for _, r := range m {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 3 {
		return "[REDACTED_PHONE]"
	}
	return "[REDACTED_PHONE:" + string(digits[len(digits)-3:]) + "]"
}
