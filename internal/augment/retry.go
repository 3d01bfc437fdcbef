package augment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy drives the backoff loop around the text-generation call.
// Only errors the predicate accepts are retried; anything else
// propagates immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterLow   float64
	JitterHigh  float64
	Retryable   func(error) bool

	// OnRetry, when set, observes each retried failure before the
	// backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy retries rate-limit signals only.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 6,
	BaseDelay:   1500 * time.Millisecond,
	MaxDelay:    30 * time.Second,
	JitterLow:   0.75,
	JitterHigh:  1.25,
	Retryable:   IsRateLimited,
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget runs out.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", p.MaxAttempts, lastErr)
}

// delay computes min(base * 2^(attempt-1) * jitter, cap) with jitter
// drawn uniformly from [JitterLow, JitterHigh].
func (p RetryPolicy) delay(attempt int) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	jitter := p.JitterLow + rand.Float64()*(p.JitterHigh-p.JitterLow)
	d := time.Duration(backoff * jitter)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
