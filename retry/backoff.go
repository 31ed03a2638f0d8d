package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Multiplicative returns a factory for a deterministic delay sequence:
// the n-th delay is base * multiplier^(n-1), capped at maxDelay when maxDelay > 0.
func Multiplicative(base time.Duration, multiplier float64, maxDelay time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return &multiplicativeBackOff{
			base:       base,
			multiplier: multiplier,
			max:        maxDelay,
		}
	}
}

type multiplicativeBackOff struct {
	base       time.Duration
	multiplier float64
	max        time.Duration
	n          int
}

func (b *multiplicativeBackOff) NextBackOff() time.Duration {
	delay := float64(b.base) * math.Pow(b.multiplier, float64(b.n))
	b.n++

	if b.max > 0 && delay > float64(b.max) {
		return b.max
	}
	return time.Duration(delay)
}

func (b *multiplicativeBackOff) Reset() {
	b.n = 0
}

// Jitter returns a factory for a randomized exponential delay sequence that
// starts at base, doubles each step, varies by +/- factor and never drops
// below base. Each delay is capped at maxDelay when maxDelay > 0.
func Jitter(base time.Duration, factor float64, maxDelay time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = base
		exp.RandomizationFactor = factor
		exp.Multiplier = 2
		if maxDelay > 0 {
			exp.MaxInterval = maxDelay
		}

		return &boundedBackOff{
			next: exp,
			min:  base,
			max:  maxDelay,
		}
	}
}

// boundedBackOff clamps the delays of another BackOff into [min, max].
type boundedBackOff struct {
	next backoff.BackOff
	min  time.Duration
	max  time.Duration
}

func (b *boundedBackOff) NextBackOff() time.Duration {
	delay := b.next.NextBackOff()
	if delay == backoff.Stop {
		return delay
	}
	if delay < b.min {
		delay = b.min
	}
	if b.max > 0 && delay > b.max {
		delay = b.max
	}
	return delay
}

func (b *boundedBackOff) Reset() {
	b.next.Reset()
}
