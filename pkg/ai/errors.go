package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCompleter is reported when the gateway runs without a configured provider.
var ErrNoCompleter = errors.New("no completion provider configured")

// RateLimitError indicates the provider rejected the call with HTTP 429.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// InvalidResponseError indicates content that is not the requested JSON shape.
type InvalidResponseError struct {
	Content string
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid completion response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// ProviderUnavailableError indicates the provider is down or unreachable.
type ProviderUnavailableError struct {
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion provider unavailable: %v", e.Err)
	}
	return "completion provider unavailable"
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// ServiceFailure is the failure arm of a completion attempt. The gateway converts it
// into fallback content rather than returning it to callers.
type ServiceFailure struct {
	Stage string
	Err   error
}

func (f *ServiceFailure) Error() string {
	return fmt.Sprintf("completion %s failed: %v", f.Stage, f.Err)
}

func (f *ServiceFailure) Unwrap() error { return f.Err }
