package augment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tenderpulse/tagger/internal/core/domain"
	"github.com/tenderpulse/tagger/internal/metrics"
)

// Client invokes the text-generation service to suggest candidate
// labels. A single process-wide permit serializes external calls; the
// permit guards a shared rate limit, not memory.
type Client struct {
	gen    TextGenerator
	retry  RetryPolicy
	permit chan struct{}
	log    *slog.Logger
}

// NewClient wraps a text generator with the single-flight gate and the
// default retry policy.
func NewClient(gen TextGenerator, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		gen:    gen,
		retry:  DefaultRetryPolicy,
		permit: make(chan struct{}, 1),
		log:    log,
	}
	c.retry.OnRetry = func(attempt int, err error) {
		metrics.AugmentationRetries.Inc()
		c.log.Debug("augmentation rate limited, backing off",
			"attempt", attempt, "error", err)
	}
	return c
}

// Suggest returns up to quota raw candidate labels for the given text,
// or an error wrapping ErrAugmentationFailed once retries are spent.
func (c *Client) Suggest(ctx context.Context, prompt, text string, quota int) ([]string, error) {
	if quota <= 0 {
		return nil, nil
	}

	full := composePrompt(prompt, text, quota)

	var reply string
	err := c.withPermit(ctx, func() error {
		return c.retry.Do(ctx, func() error {
			var genErr error
			reply, genErr = c.gen.Generate(ctx, full)
			return genErr
		})
	})
	if err != nil {
		metrics.AugmentationCalls.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrAugmentationFailed, err)
	}

	metrics.AugmentationCalls.WithLabelValues("ok").Inc()
	return splitCandidates(reply), nil
}

// withPermit blocks until the single in-flight permit is available and
// releases it unconditionally when fn returns.
func (c *Client) withPermit(ctx context.Context, fn func() error) error {
	select {
	case c.permit <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.permit }()
	return fn()
}
