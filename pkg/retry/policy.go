package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how a single logical call is retried.
//
// A failed attempt is followed by a wait before the next one. Rate-limited
// failures back off exponentially from RateLimitBaseDelay
// (base * 2^(attempt-1)); every other retryable failure waits TransientDelay.
// After MaxAttempts the last error is returned to the caller.
type Policy struct {
	MaxAttempts        int
	RateLimitBaseDelay time.Duration
	TransientDelay     time.Duration

	// IsRateLimited reports whether err is a rate-limit signal from the provider.
	IsRateLimited func(err error) bool

	// IsRetryable reports whether another attempt can succeed. Nil means every
	// error except those wrapped by Permanent is retried.
	IsRetryable func(err error) bool

	// Sleep waits between attempts. Nil uses SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the text generation retry policy: 3 attempts, 1s
// exponential base for rate limits, 500ms for transient errors.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		RateLimitBaseDelay: time.Second,
		TransientDelay:     500 * time.Millisecond,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int, err error) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.IsRateLimited != nil && p.IsRateLimited(err) {
		return p.RateLimitBaseDelay * time.Duration(1<<(attempt-1))
	}
	return p.TransientDelay
}

func (p Policy) retryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if p.IsRetryable != nil {
		return p.IsRetryable(err)
	}
	return true
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.retryable(err) {
			return unwrapPermanent(err)
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.Delay(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt, serr, lastErr)
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, lastErr)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}
