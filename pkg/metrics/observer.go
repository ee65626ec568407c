package metrics

import "time"

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Event names emitted by the intake pipeline.
const (
	EventExtractLatency = "extract_latency_ms"
	EventExtractEmpty   = "extract_empty"
	EventMatchLatency   = "match_latency_ms"
	EventMatchUnmatched = "match_unmatched"
	EventCommitLatency  = "commit_latency_ms"
	EventCommitFailed   = "commit_failed"
	EventRateLimit      = "llm_rate_limit"
	EventBreakerOpen    = "llm_breaker_open"
	EventBreakerClose   = "llm_breaker_close"
	EventBreakerDenied  = "llm_breaker_denied"
)

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
