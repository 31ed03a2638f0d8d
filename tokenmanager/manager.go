package tokenmanager

import (
	"context"
	"time"

	"github.com/AmmannChristian/go-sftoken/retry"
)

// Manager is the blocking token life-cycle manager.
//
// Token and Refresh block the calling goroutine for network I/O and backoff
// delays. Manager is safe for concurrent use. Concurrent refreshes are not
// deduplicated: each successful one simply overwrites the cached token.
//
// Retries use a deterministic multiplicative backoff. When a refresh is
// exhausted the cached token is cleared, so the next caller starts over with
// a fresh refresh instead of reusing a suspect token.
type Manager struct {
	store     *Store
	issuer    *Issuer
	refresher *refresher
	opts      *options
	budget    time.Duration
}

// NewManager creates a blocking Manager for the given configuration.
//
// Parameters:
//   - cfg: Identity endpoint, credentials and refresh policy (zero values use defaults)
//   - opts: Optional configuration options (WithLogger, WithHTTPClient, WithFailureObserver)
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	o := newOptions(opts)

	store := &Store{}
	issuer := newIssuer(cfg, store, o)

	return &Manager{
		store:  store,
		issuer: issuer,
		refresher: newRefresher(
			issuer, store, o,
			cfg.MaxRefreshAttempts,
			retry.Multiplicative(cfg.BackoffBaseDelay, cfg.BackoffMultiplier, cfg.BackoffMaxDelay),
			true,
		),
		opts:   o,
		budget: cfg.backoffBudget(),
	}, nil
}

// Token returns the cached token, or refreshes when nothing is cached.
// A cached token is returned without any network call.
//
// Returns:
//   - string: Authorization header value ("<token_type> <access_token>")
//   - error: *RefreshExhaustedError if every attempt failed, or the context error
func (m *Manager) Token(ctx context.Context) (string, error) {
	if token := m.store.Get(); token != "" {
		return token, nil
	}

	m.opts.logf("tokenmanager: no cached token, refreshing")
	return m.Refresh(ctx)
}

// Refresh obtains a new token regardless of the cache and stores it.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return m.refresher.refresh(ctx)
}

// CachedToken returns the cached token or "" without refreshing.
func (m *Manager) CachedToken() string {
	return m.store.Get()
}

// BackoffBudget returns the longest total time one refresh can spend
// waiting between attempts.
func (m *Manager) BackoffBudget() time.Duration {
	return m.budget
}

// Invalidate drops the cached token.
func (m *Manager) Invalidate() {
	m.store.Clear()
}

// Issuer returns the underlying single-shot issuer.
func (m *Manager) Issuer() *Issuer {
	return m.issuer
}
