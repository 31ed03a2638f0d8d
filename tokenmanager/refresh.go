package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AmmannChristian/go-sftoken/retry"
	"github.com/cenkalti/backoff/v5"
)

// refresher runs the issuer under a retry policy and handles exhaustion.
type refresher struct {
	issuer *Issuer
	store  *Store
	opts   *options
	policy retry.Policy

	// clearOnFailure drops the cached token when a refresh is exhausted.
	clearOnFailure bool
}

func newRefresher(issuer *Issuer, store *Store, o *options, maxAttempts int, newBackOff func() backoff.BackOff, clearOnFailure bool) *refresher {
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		BackOff:     newBackOff,
		Sleep:       o.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			o.logf("tokenmanager: auth attempt %d failed, retrying in %s: %v", attempt, delay, err)
		},
	}

	return &refresher{
		issuer:         issuer,
		store:          store,
		opts:           o,
		policy:         policy,
		clearOnFailure: clearOnFailure,
	}
}

// refresh obtains a new token, bypassing the cache.
//
// On exhaustion the failure observer is notified exactly once and a
// *RefreshExhaustedError is returned. A cancelled context ends the refresh
// with the context error and is not reported as a failure.
func (r *refresher) refresh(ctx context.Context) (string, error) {
	token, err := retry.Do(ctx, r.policy, func(ctx context.Context, _ int) (string, error) {
		return r.issuer.Issue(ctx)
	})
	if err == nil {
		r.opts.logf("tokenmanager: token refresh successful")
		return token, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		r.opts.logf("tokenmanager: token refresh failed after %d attempts: %v", exhausted.Attempts, exhausted.Err)
		r.opts.observer.Increment(KindTokenRefreshException)
		if r.clearOnFailure {
			r.store.Clear()
		}
		return "", &RefreshExhaustedError{Attempts: exhausted.Attempts, Err: exhausted.Err}
	}

	return "", fmt.Errorf("tokenmanager: token refresh interrupted: %w", err)
}
