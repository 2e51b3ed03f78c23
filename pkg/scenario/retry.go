package scenario

import (
	"context"
	"time"
)

// RetryPolicy decides how often an operation is attempted. Only navigation
// is run under a policy; every other step fails on its first error.
type RetryPolicy interface {
	Do(ctx context.Context, op func() error) error
}

// NoRetry runs the operation once.
type NoRetry struct{}

func (NoRetry) Do(_ context.Context, op func() error) error {
	return op()
}

// FixedRetry retries a failed operation up to Attempts extra times, waiting
// Delay between attempts. The last error is returned.
type FixedRetry struct {
	Attempts int
	Delay    time.Duration

	// OnRetry, if set, is called before each retry
	OnRetry func(attempt int, err error)
}

func (p FixedRetry) Do(ctx context.Context, op func() error) error {
	err := op()
	for attempt := 1; err != nil && attempt <= p.Attempts; attempt++ {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		err = op()
	}
	return err
}

// retryPolicyFor builds the navigation policy of a configuration.
func retryPolicyFor(cfg *RunConfig) RetryPolicy {
	if cfg.NavigationRetries <= 0 {
		return NoRetry{}
	}
	return FixedRetry{Attempts: cfg.NavigationRetries, Delay: cfg.RetryDelay}
}
