// Package retry provides a small retry combinator with pluggable backoff.
//
// Do runs an operation up to Policy.MaxAttempts times (the first attempt
// included), waiting between attempts for the delays produced by a
// github.com/cenkalti/backoff/v5 BackOff. Waits honour the context, so
// cancelling it stops a pending delay immediately.
//
// Two delay sequences are provided:
//
//   - Multiplicative: base * multiplier^(n-1), deterministic
//   - Jitter: randomized exponential delay that never drops below base
//
// # Example
//
//	tok, err := retry.Do(ctx, retry.Policy{
//	    MaxAttempts: 3,
//	    BackOff:     retry.Multiplicative(time.Second, 2, 30*time.Second),
//	}, func(ctx context.Context, attempt int) (string, error) {
//	    return issuer.Issue(ctx)
//	})
//	if errors.Is(err, retry.ErrExhausted) {
//	    // every attempt failed
//	}
package retry
