package retry

import (
	"context"
	"time"
)

// Policy is a bounded retry schedule. MaxAttempts counts the first try.
// Delays[i] is the wait before attempt i+2; the last entry repeats, and an
// empty schedule retries immediately.
type Policy struct {
	MaxAttempts int
	Delays      []time.Duration

	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// Fixed returns a policy with a constant wait between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delays: []time.Duration{delay}}
}

// NoDelay returns a policy that retries immediately.
func NoDelay(attempts int) Policy {
	return Policy{MaxAttempts: attempts}
}

// Default is three attempts two seconds apart.
func Default() Policy {
	return Fixed(3, 2*time.Second)
}

// Attempts returns the normalised attempt budget (at least one).
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if len(p.Delays) == 0 || attempt < 1 {
		return 0
	}
	if attempt > len(p.Delays) {
		return p.Delays[len(p.Delays)-1]
	}
	return p.Delays[attempt-1]
}

// WithOnRetry returns a copy of p with the hook set.
func (p Policy) WithOnRetry(fn func(attempt int, err error)) Policy {
	p.OnRetry = fn
	return p
}

// Do calls fn until it succeeds or the attempt budget is spent, returning the
// last error. Attempts are numbered from 1. A cancelled context stops the
// wait and returns the context error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error
	attempts := p.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
