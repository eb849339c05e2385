package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy controls how Call retries a rate-limited operation.
type Policy struct {
	// MaxAttempts is the total number of attempts. Default: 3.
	MaxAttempts int

	// Base is the wait before the second attempt; each later wait doubles.
	Base time.Duration

	// Service and Operation label retry logs.
	Service   string
	Operation string

	// OnRetry is called before each wait. Defaults to a zap warning.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy returns the standard three-attempt policy for a service.
func DefaultPolicy(service string, base time.Duration) Policy {
	return Policy{
		MaxAttempts: 3,
		Base:        base,
		Service:     service,
	}
}

// For returns a copy of p labelled with the given operation.
func (p Policy) For(operation string) Policy {
	p.Operation = operation
	return p
}

// Call runs fn until it succeeds, is rejected, fails terminally, or exhausts
// its attempts. The boolean result is false when the provider rejected the
// request as invalid, in which case the error is nil.
//
// A Retryable failure waits Base*2^attempt before the next attempt. When the
// last attempt is also rate limited Call returns an error matching
// ErrRetriesExceeded. Terminal errors are returned unchanged.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	p = applyDefaults(p)

	var zero T
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		switch Classify(err) {
		case Success:
			return val, true, nil
		case Rejected:
			return zero, false, nil
		case Terminal:
			return zero, false, err
		}

		if attempt >= p.MaxAttempts-1 {
			return zero, false, &RetriesExceededError{
				Service:   p.Service,
				Operation: p.Operation,
				Attempts:  p.MaxAttempts,
				Err:       err,
			}
		}

		wait := Backoff(p.Base, attempt)
		p.OnRetry(attempt+1, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, false, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, false, &RetriesExceededError{Service: p.Service, Operation: p.Operation, Attempts: p.MaxAttempts}
}

// Backoff returns base*2^attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << uint(attempt)
}

func applyDefaults(p Policy) Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.OnRetry == nil {
		p.OnRetry = RetryLogger(p.Service, p.Operation)
	}
	return p
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, time.Duration, error) {
	return func(attempt int, wait time.Duration, err error) {
		zap.L().Warn("rate limited, retrying",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
}
