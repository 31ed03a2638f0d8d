package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/AmmannChristian/go-sftoken/testutil"
	"github.com/AmmannChristian/go-sftoken/tokenmanager"
)

const apiURL = "https://api.example.com"

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

// stubTokens is a TokenProvider with a scripted refresh.
type stubTokens struct {
	mu         sync.Mutex
	cached     string
	next       []string
	refreshErr error
	tokenCalls int
	refreshes  int
}

func (s *stubTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.tokenCalls++
	cached := s.cached
	s.mu.Unlock()

	if cached != "" {
		return cached, nil
	}
	return s.Refresh(ctx)
}

func (s *stubTokens) Refresh(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshes++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	if len(s.next) > 0 {
		s.cached, s.next = s.next[0], s.next[1:]
	}
	return s.cached, nil
}

func (s *stubTokens) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func newTestConfig(host string) tokenmanager.Config {
	return tokenmanager.Config{
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

func newTestManager(t *testing.T, auth *testutil.MockEndpoint) *tokenmanager.Manager {
	t.Helper()

	tm, err := tokenmanager.NewManager(newTestConfig(auth.URL), tokenmanager.WithHTTPClient(auth.Client))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return tm
}

// requireToken answers 200 "ok" for want and 401 for anything else.
func requireToken(want string) testutil.RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != want {
			return testutil.NewResponse(req, http.StatusUnauthorized, `[{"errorCode":"INVALID_SESSION_ID"}]`), nil
		}
		return testutil.NewResponse(req, http.StatusOK, "ok"), nil
	}
}
