package ai

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls the retry decorator.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns conservative defaults for interactive generation.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2,
	}
}

type retryCompleter struct {
	inner  Completer
	config RetryConfig
}

// WithRetry wraps a Completer so transient failures are retried with exponential
// backoff and jitter. Context errors are never retried; invalid responses get one retry.
func WithRetry(inner Completer, cfg RetryConfig) Completer {
	if cfg.MaxAttempts <= 1 {
		return inner
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	return &retryCompleter{inner: inner, config: cfg}
}

func (r *retryCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error
	invalidRetried := false

	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !shouldRetry(err, &invalidRetried) {
			return CompletionResponse{}, err
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return CompletionResponse{}, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}

	return CompletionResponse{}, lastErr
}

func (r *retryCompleter) ModelID() string {
	return r.inner.ModelID()
}

func shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var invalid *InvalidResponseError
	if errors.As(err, &invalid) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}

	return true
}

func (r *retryCompleter) backoff(attempt int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// ±20% jitter
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
