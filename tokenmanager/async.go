package tokenmanager

import (
	"context"
	"time"

	"github.com/AmmannChristian/go-sftoken/future"
	"github.com/AmmannChristian/go-sftoken/retry"
)

// AsyncManager is the non-blocking token life-cycle manager.
//
// Token and Refresh return immediately with a *future.Future. The work runs on
// its own goroutine and suspends at the auth call and at every backoff delay;
// cancelling the context passed in cancels both.
//
// Retries use a randomized exponential backoff that never drops below
// Config.BackoffBaseDelay. An exhausted refresh fails only that call: a token
// cached by an earlier successful refresh stays in place.
type AsyncManager struct {
	store     *Store
	issuer    *Issuer
	refresher *refresher
	opts      *options
	budget    time.Duration
}

// NewAsyncManager creates a non-blocking AsyncManager for the given configuration.
func NewAsyncManager(cfg Config, opts ...Option) (*AsyncManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	o := newOptions(opts)

	store := &Store{}
	issuer := newIssuer(cfg, store, o)

	return &AsyncManager{
		store:  store,
		issuer: issuer,
		refresher: newRefresher(
			issuer, store, o,
			cfg.MaxRefreshAttempts,
			retry.Jitter(cfg.BackoffBaseDelay, cfg.JitterFactor, cfg.BackoffMaxDelay),
			false,
		),
		opts:   o,
		budget: cfg.backoffBudget(),
	}, nil
}

// Token resolves to the cached token, or to a freshly refreshed one when
// nothing is cached. A cached token resolves immediately without a goroutine.
func (m *AsyncManager) Token(ctx context.Context) *future.Future[string] {
	if token := m.store.Get(); token != "" {
		return future.Resolved(token)
	}

	m.opts.logf("tokenmanager: no cached token, refreshing")
	return m.Refresh(ctx)
}

// Refresh starts a refresh that bypasses the cache.
func (m *AsyncManager) Refresh(ctx context.Context) *future.Future[string] {
	if ctx == nil {
		ctx = context.Background()
	}
	return future.Go(ctx, m.refresher.refresh)
}

// CachedToken returns the cached token or "" without refreshing.
func (m *AsyncManager) CachedToken() string {
	return m.store.Get()
}

// BackoffBudget returns the longest total time one refresh can spend
// waiting between attempts.
func (m *AsyncManager) BackoffBudget() time.Duration {
	return m.budget
}

// Invalidate drops the cached token.
func (m *AsyncManager) Invalidate() {
	m.store.Clear()
}

// Blocking adapts the AsyncManager to the blocking Token/Refresh signatures by
// awaiting each future. Waiting stops when ctx is done.
func (m *AsyncManager) Blocking() *BlockingView {
	return &BlockingView{m: m}
}

// BlockingView exposes an AsyncManager through blocking methods.
type BlockingView struct {
	m *AsyncManager
}

// Token awaits AsyncManager.Token.
func (v *BlockingView) Token(ctx context.Context) (string, error) {
	return v.m.Token(ctx).Await(ctx)
}

// Refresh awaits AsyncManager.Refresh.
func (v *BlockingView) Refresh(ctx context.Context) (string, error) {
	return v.m.Refresh(ctx).Await(ctx)
}

// BackoffBudget returns AsyncManager.BackoffBudget.
func (v *BlockingView) BackoffBudget() time.Duration {
	return v.m.BackoffBudget()
}
