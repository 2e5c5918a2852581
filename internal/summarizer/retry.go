package summarizer

import (
	"context"
	"errors"
	"time"
)

// Default retry settings.
const (
	DefaultRetryAfter   = 5 * time.Second
	DefaultMaxTotalWait = 10 * time.Minute
)

// ErrRetryBudgetExhausted is returned when waiting for another rate-limit
// retry would exceed RetryPolicy.MaxTotalWait.
var ErrRetryBudgetExhausted = errors.New("rate limit retry budget exhausted")

// RetryPolicy bounds the wait-and-retry loop on rate-limit responses.
type RetryPolicy struct {
	// DefaultRetryAfter is used when the service omits a retry delay.
	DefaultRetryAfter time.Duration
	// MaxTotalWait caps the sum of all waits for one call.
	MaxTotalWait time.Duration
}

// DefaultRetryPolicy returns a RetryPolicy with reasonable defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		DefaultRetryAfter: DefaultRetryAfter,
		MaxTotalWait:      DefaultMaxTotalWait,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.DefaultRetryAfter <= 0 {
		p.DefaultRetryAfter = DefaultRetryAfter
	}
	if p.MaxTotalWait <= 0 {
		p.MaxTotalWait = DefaultMaxTotalWait
	}
	return p
}

// delay returns how long to wait before retrying after err.
func (p RetryPolicy) delay(err *RateLimitError) time.Duration {
	if err.RetryAfter > 0 {
		return err.RetryAfter
	}
	return p.DefaultRetryAfter
}

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
