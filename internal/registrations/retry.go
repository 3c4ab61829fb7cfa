package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
)

// RetryPolicy bounds retries of side effects that must complete.
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy is used when none is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	MinBackoff:  100 * time.Millisecond,
	MaxBackoff:  2 * time.Second,
}

// do runs fn until it succeeds, returns a typed lifecycle error, or attempts
// run out. Context cancellation stops the loop.
func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := &backoff.Backoff{
		Min:    p.MinBackoff,
		Max:    p.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || isDomainError(err) || errors.Is(err, context.Canceled) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay.Duration()):
		}
	}
	return err
}
