package resilience

import (
	"errors"
	"fmt"
)

// ErrRetriesExceeded is returned when a rate-limited call still fails after
// the last allowed attempt. It always aborts the surrounding batch.
var ErrRetriesExceeded = errors.New("retries exceeded")

// ErrFatal marks configuration or environment failures that make every
// remaining entity in a batch fail the same way (missing API key, missing
// profile, missing template).
var ErrFatal = errors.New("fatal")

// StatusCoder is implemented by API errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// RateLimitError marks a provider-signalled rate limit without an HTTP status.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return "rate limited: " + e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// ValidationError marks a request the provider refused as invalid. Callers
// treat it as "no result" rather than a failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "rejected: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// RetriesExceededError reports a call that was still rate limited on its
// last attempt.
type RetriesExceededError struct {
	Service   string
	Operation string
	Attempts  int
	Err       error
}

func (e *RetriesExceededError) Error() string {
	return fmt.Sprintf("%s %s: retries exceeded after %d attempts: %v", e.Service, e.Operation, e.Attempts, e.Err)
}
func (e *RetriesExceededError) Unwrap() error { return e.Err }
func (e *RetriesExceededError) Is(target error) bool {
	return target == ErrRetriesExceeded
}

// FatalError wraps an error so that IsFatal reports true for it.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }
func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// Fatal wraps err as a batch-aborting failure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf formats a batch-aborting failure.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err must abort the batch instead of being recorded
// against a single entity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRetriesExceeded) || errors.Is(err, ErrFatal)
}

// Kind is the classified outcome of a single external call.
type Kind int

const (
	Success Kind = iota
	Retryable
	Rejected
	Terminal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Rejected:
		return "rejected"
	default:
		return "terminal"
	}
}

// Classify maps an error from an external call onto a Kind. It has no side
// effects and is safe to call from tests directly.
func Classify(err error) Kind {
	if err == nil {
		return Success
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return Retryable
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Rejected
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case 429:
			return Retryable
		case 422:
			return Rejected
		}
	}
	return Terminal
}
