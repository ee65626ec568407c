package llm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/storestorm/intake/pkg/metrics"
	"github.com/storestorm/intake/pkg/resilience"
)

// CircuitBreakerAdapter wraps an Adapter so a rate-limited provider gets a
// cooldown instead of a retry storm. Denied calls fail fast with a
// RateLimitError; the extractor maps that to zero items, so a caller mid
// conversation hears a reprompt rather than silence.
type CircuitBreakerAdapter struct {
	inner   Adapter
	breaker *resilience.CircuitBreaker
	obs     metrics.Observer
	open    atomic.Bool
}

func NewCircuitBreakerAdapter(inner Adapter, breaker *resilience.CircuitBreaker) *CircuitBreakerAdapter {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(3, 30*time.Second)
	}
	return &CircuitBreakerAdapter{inner: inner, breaker: breaker}
}

func (a *CircuitBreakerAdapter) Name() string { return a.inner.Name() }

// SetObserver installs a metrics sink for breaker transitions.
func (a *CircuitBreakerAdapter) SetObserver(obs metrics.Observer) { a.obs = obs }

func (a *CircuitBreakerAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	if !a.breaker.Allow() {
		a.transition(true)
		a.record(metrics.EventBreakerDenied)
		return Response{}, resilience.RateLimitError{Provider: a.Name(), Message: "degraded"}
	}
	a.transition(false)

	resp, err := a.inner.Generate(ctx, req)
	if err != nil {
		if resilience.IsRateLimit(err) {
			a.record(metrics.EventRateLimit)
		}
		a.breaker.OnError(err)
		return Response{}, err
	}
	a.breaker.OnSuccess()
	return resp, nil
}

// transition records open/close edges exactly once per state change.
func (a *CircuitBreakerAdapter) transition(open bool) {
	if a.open.Swap(open) == open {
		return
	}
	if open {
		a.record(metrics.EventBreakerOpen)
	} else {
		a.record(metrics.EventBreakerClose)
	}
}

func (a *CircuitBreakerAdapter) record(name string) {
	if a.obs == nil {
		return
	}
	a.obs.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{
			"provider":  a.inner.Name(),
			"component": "llm",
		},
	})
}
