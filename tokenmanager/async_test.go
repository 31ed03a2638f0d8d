package tokenmanager

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/AmmannChristian/go-sftoken/testutil"
)

func newTestAsyncManager(t *testing.T, server *testutil.MockEndpoint, cfg Config, opts ...Option) *AsyncManager {
	t.Helper()

	opts = append([]Option{WithHTTPClient(server.Client)}, opts...)
	tm, err := NewAsyncManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewAsyncManager failed: %v", err)
	}
	return tm
}

func TestNewAsyncManager_InvalidConfig(t *testing.T) {
	if _, err := NewAsyncManager(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestAsyncManager_Token_FetchesOnceThenCaches(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.StaticJSONResponse(testutil.TokenResponse("tok", "Bearer")))
	tm := newTestAsyncManager(t, server, newTestConfig(server.URL))
	ctx := context.Background()

	token, err := tm.Token(ctx).Await(ctx)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "Bearer tok" {
		t.Errorf("expected 'Bearer tok', got %q", token)
	}

	f := tm.Token(ctx)
	select {
	case <-f.Done():
	default:
		t.Error("cached token should resolve immediately")
	}

	token, err = f.Result()
	if err != nil || token != "Bearer tok" {
		t.Errorf("expected cached 'Bearer tok', got %q / %v", token, err)
	}
	if server.Count() != 1 {
		t.Errorf("expected 1 auth call, got %d", server.Count())
	}
}

func TestAsyncManager_Refresh_SucceedsAfterFailures(t *testing.T) {
	server := testutil.NewMockAuthServer(t, failingAuth(2, "fresh"))
	observer := &countingObserver{}
	sleeps := &recordedSleeps{}
	tm := newTestAsyncManager(t, server, newTestConfig(server.URL),
		WithFailureObserver(observer), withSleeper(sleeps.sleep))

	token, err := tm.Refresh(context.Background()).Result()
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if token != "Bearer fresh" {
		t.Errorf("unexpected token %q", token)
	}
	if server.Count() != 3 {
		t.Errorf("expected 3 auth calls, got %d", server.Count())
	}
	if observer.count() != 0 {
		t.Errorf("expected no failure events, got %d", observer.count())
	}

	cfg := newTestConfig(server.URL)
	for i, d := range sleeps.get() {
		if d < cfg.BackoffBaseDelay || d > cfg.BackoffMaxDelay {
			t.Errorf("delay %d out of bounds: %v", i+1, d)
		}
	}
}

func TestAsyncManager_Refresh_ExhaustedKeepsCachedToken(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.Sequence(
		testutil.StaticJSONResponse(testutil.TokenResponse("good", "Bearer")),
		testutil.StatusResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`),
	))
	observer := &countingObserver{}
	tm := newTestAsyncManager(t, server, newTestConfig(server.URL), WithFailureObserver(observer))
	ctx := context.Background()

	if _, err := tm.Token(ctx).Await(ctx); err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	_, err := tm.Refresh(ctx).Await(ctx)
	if !errors.Is(err, ErrRefreshExhausted) {
		t.Fatalf("expected ErrRefreshExhausted, got %v", err)
	}

	if server.Count() != 4 {
		t.Errorf("expected 1 + 3 auth calls, got %d", server.Count())
	}
	if observer.count() != 1 {
		t.Errorf("expected failure counter 1, got %d", observer.count())
	}
	if tm.CachedToken() != "Bearer good" {
		t.Errorf("non-blocking manager must keep the previous token, got %q", tm.CachedToken())
	}
}

func TestAsyncManager_Refresh_CancelStopsBackoff(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.StatusResponse(http.StatusServiceUnavailable, ``))
	observer := &countingObserver{}
	cfg := newTestConfig(server.URL)
	cfg.BackoffBaseDelay = time.Hour
	cfg.BackoffMaxDelay = time.Hour
	tm := newTestAsyncManager(t, server, cfg, WithFailureObserver(observer))

	ctx, cancel := context.WithCancel(context.Background())
	f := tm.Refresh(ctx)

	// Wait until the first attempt has been made and the backoff is pending.
	deadline := time.Now().Add(5 * time.Second)
	for server.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not stop after cancellation")
	}

	if _, err := f.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if server.Count() != 1 {
		t.Errorf("expected a single auth call, got %d", server.Count())
	}
	if observer.count() != 0 {
		t.Errorf("cancellation must not count as a failure, got %d", observer.count())
	}
}

func TestAsyncManager_Refresh_CancelStopsAuthCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	server := testutil.NewMockAuthServer(t, func(req *http.Request) (*http.Response, error) {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-release:
			return testutil.NewResponse(req, http.StatusOK, testutil.TokenResponse("late", "Bearer")), nil
		}
	})
	tm := newTestAsyncManager(t, server, newTestConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	f := tm.Token(ctx)
	cancel()

	if _, err := f.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if tm.CachedToken() != "" {
		t.Errorf("cancelled refresh must not store a token, got %q", tm.CachedToken())
	}
}

func TestAsyncManager_Blocking(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.Sequence(
		testutil.StaticJSONResponse(testutil.TokenResponse("one", "Bearer")),
		testutil.StaticJSONResponse(testutil.TokenResponse("two", "Bearer")),
	))
	tm := newTestAsyncManager(t, server, newTestConfig(server.URL))

	var tp TokenProvider = tm.Blocking()

	token, err := tp.Token(context.Background())
	if err != nil || token != "Bearer one" {
		t.Fatalf("expected 'Bearer one', got %q / %v", token, err)
	}

	token, err = tp.Refresh(context.Background())
	if err != nil || token != "Bearer two" {
		t.Fatalf("expected 'Bearer two', got %q / %v", token, err)
	}

	tm.Invalidate()
	if tm.CachedToken() != "" {
		t.Errorf("expected empty cache after Invalidate, got %q", tm.CachedToken())
	}
}
