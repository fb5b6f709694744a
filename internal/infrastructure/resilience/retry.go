package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/constants"
)

// RetryPolicy re-runs a failed call up to MaxAttempts times in total with a
// constant Delay between attempts. Every error is retryable.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	// OnRetry is called before each re-attempt with the number of the attempt
	// that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy returns 3 attempts spaced 1s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: constants.DefaultRetryMaxAttempts,
		Delay:       constants.DefaultRetryWaitDuration,
	}
}

// RetryPolicyFromConfig converts the configuration surface into a RetryPolicy.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       time.Duration(cfg.WaitDuration) * time.Second,
	}
}

// Do runs call until it succeeds or the attempts run out, returning the last
// error. Cancelling ctx stops further attempts and returns ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, call func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		return call(ctx)
	}
	notify := func(err error, _ time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
	}
	return backoff.RetryNotify(operation, b, notify)
}
