package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/abhisek/actprep/internal/logger"
)

// RetryProvider retries transient failures with jittered exponential
// backoff. A rate limit with a Retry-After hint waits for the hint instead,
// capped at MaxWait.
type RetryProvider struct {
	inner Provider
	cfg   RetryConfig
	log   *logger.Logger
}

func WithRetry(p Provider, cfg RetryConfig, log *logger.Logger) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, cfg: cfg, log: logger.OrNop(log)}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	pacer := &pacedBackOff{ExponentialBackOff: r.schedule(), max: r.cfg.MaxWait}
	sawInvalid := false
	attempt := 0

	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		attempt++
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err, &sawInvalid) {
			return nil, backoff.Permanent(err)
		}
		var rl *ErrRateLimit
		if errors.As(err, &rl) {
			pacer.hint = rl.RetryAfter
		}
		return nil, err
	},
		backoff.WithBackOff(pacer),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.log.Warn("retrying llm request", "purpose", req.purpose(), "attempt", attempt, "wait", wait, "error", err)
		}),
	)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return resp, err
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialWait
	b.MaxInterval = r.cfg.MaxWait
	if r.cfg.Multiplier > 0 {
		b.Multiplier = r.cfg.Multiplier
	}
	b.RandomizationFactor = 0.2
	return b
}

// retryable sorts failures into transient and permanent. A schema mismatch
// is retried once since resampling often fixes it.
func retryable(err error, sawInvalid *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) {
		return false
	}

	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		if *sawInvalid {
			return false
		}
		*sawInvalid = true
		return true
	}

	// Client errors other than timeouts will fail the same way again.
	var down *ErrProviderUnavailable
	if errors.As(err, &down) && down.StatusCode >= 400 && down.StatusCode < 500 &&
		down.StatusCode != http.StatusRequestTimeout {
		return false
	}
	return true
}

// pacedBackOff follows the exponential schedule unless a rate limit
// supplied a wait hint for the next attempt.
type pacedBackOff struct {
	*backoff.ExponentialBackOff
	hint time.Duration
	max  time.Duration
}

func (b *pacedBackOff) NextBackOff() time.Duration {
	next := b.ExponentialBackOff.NextBackOff()
	if b.hint > 0 {
		next = b.hint
		if b.max > 0 && next > b.max {
			next = b.max
		}
		b.hint = 0
	}
	return next
}
