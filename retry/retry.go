package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrExhausted is matched by errors returned from Do when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// ExhaustedError reports that all attempts of a Do call failed.
// Err holds the error of the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Err)
}

// Unwrap returns the error of the final attempt.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExhausted) report true.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy parameterizes Do.
type Policy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BackOff creates the delay sequence for one Do call. The first
	// NextBackOff is the delay before the second attempt. Nil means no delay.
	BackOff func() backoff.BackOff

	// Retryable decides whether a failed attempt may be retried.
	// Nil treats every error as retryable.
	Retryable func(error) bool

	// OnRetry is called after a failed attempt that will be retried,
	// before the delay starts.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Sleep replaces the timer-based wait, mainly for tests.
	Sleep Sleeper
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. Attempts are numbered from 1.
//
// When the attempts run out the returned error is an *ExhaustedError wrapping
// the last failure. Context cancellation during a delay returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var b backoff.BackOff
	if p.BackOff != nil {
		b = p.BackOff()
		b.Reset()
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		val, err := fn(ctx, attempt)
		if err == nil {
			return val, nil
		}

		// An attempt aborted by the caller's context is not a failure of the operation.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}

		if attempt >= maxAttempts {
			return zero, &ExhaustedError{Attempts: attempt, Err: err}
		}

		var delay time.Duration
		if b != nil {
			delay = b.NextBackOff()
			if delay == backoff.Stop {
				return zero, &ExhaustedError{Attempts: attempt, Err: err}
			}
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// Sleep is the default Sleeper. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
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
