package resilience

import (
	"context"
	"time"
)

// RetryPolicy retries transient failures with a doubling backoff. Chat
// sends and media downloads use it; LLM extraction calls stay
// single-attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn up to MaxRetries+1 times. Cancelling the context aborts the
// wait between attempts, never an attempt in progress.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	delay := r.Backoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || attempt >= r.MaxRetries {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}
