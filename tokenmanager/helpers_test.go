package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/AmmannChristian/go-sftoken/testutil"
)

type stubLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *stubLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *stubLogger) getMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, len(l.messages))
	copy(msgs, l.messages)
	return msgs
}

type countingObserver struct {
	mu    sync.Mutex
	kinds []string
}

func (o *countingObserver) Increment(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
}

func (o *countingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.kinds)
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordedSleeps) get() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

func newTestConfig(host string) Config {
	return Config{
		Host:               host,
		Username:           "u",
		Password:           "p!@#",
		ClientID:           "cid",
		ClientSecret:       "csec",
		MaxRefreshAttempts: 3,
		BackoffBaseDelay:   time.Millisecond,
		BackoffMaxDelay:    10 * time.Millisecond,
	}
}

// failingAuth answers the first failures requests with 400 and then succeeds with token.
func failingAuth(failures int, token string) testutil.RoundTripFunc {
	handlers := make([]testutil.RoundTripFunc, 0, failures+1)
	for i := 0; i < failures; i++ {
		handlers = append(handlers, testutil.StatusResponse(http.StatusBadRequest,
			`{"error":"invalid_grant","error_description":"authentication failure"}`))
	}
	handlers = append(handlers, testutil.StaticJSONResponse(testutil.TokenResponse(token, "Bearer")))
	return testutil.Sequence(handlers...)
}

func assertAuthError(t *testing.T, err error) *AuthError {
	t.Helper()

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	return authErr
}
