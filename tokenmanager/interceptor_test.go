package tokenmanager

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/AmmannChristian/go-sftoken/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authorizationFrom(t *testing.T, ctx context.Context) string {
	t.Helper()

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Error("metadata not found in context")
		return ""
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		t.Error("authorization header not found")
		return ""
	}
	return values[len(values)-1]
}

func TestManager_UnaryClientInterceptor(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.StaticJSONResponse(testutil.TokenResponse("tok", "Bearer")))
	tm := newTestManager(t, server, newTestConfig(server.URL))

	interceptor := tm.UnaryClientInterceptor()
	if interceptor == nil {
		t.Fatal("interceptor should not be nil")
	}

	called := 0
	mockInvoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		called++
		if got := authorizationFrom(t, ctx); got != "Bearer tok" {
			t.Errorf("expected 'Bearer tok', got %q", got)
		}
		return nil
	}

	if err := interceptor(context.Background(), "/test.Service/Method", nil, nil, nil, mockInvoker); err != nil {
		t.Errorf("interceptor failed: %v", err)
	}
	if called != 1 {
		t.Errorf("expected invoker to be called once, got %d", called)
	}
}

func TestManager_UnaryClientInterceptor_RefreshesOnUnauthenticated(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.Sequence(
		testutil.StaticJSONResponse(testutil.TokenResponse("old", "Bearer")),
		testutil.StaticJSONResponse(testutil.TokenResponse("new", "Bearer")),
	))
	tm := newTestManager(t, server, newTestConfig(server.URL))
	interceptor := tm.UnaryClientInterceptor()

	var seen []string
	mockInvoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		token := authorizationFrom(t, ctx)
		seen = append(seen, token)
		if token == "Bearer old" {
			return status.Error(codes.Unauthenticated, "token expired")
		}
		return nil
	}

	if err := interceptor(context.Background(), "/test.Service/Method", nil, nil, nil, mockInvoker); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}

	if len(seen) != 2 || seen[0] != "Bearer old" || seen[1] != "Bearer new" {
		t.Errorf("expected old then new token, got %v", seen)
	}
	if server.Count() != 2 {
		t.Errorf("expected 2 auth calls, got %d", server.Count())
	}
	if tm.CachedToken() != "Bearer new" {
		t.Errorf("expected cache to hold the new token, got %q", tm.CachedToken())
	}
}

func TestManager_UnaryClientInterceptor_SecondUnauthenticatedIsReturned(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	tm := newTestManager(t, server, newTestConfig(server.URL))
	interceptor := tm.UnaryClientInterceptor()

	calls := 0
	mockInvoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		return status.Error(codes.Unauthenticated, "still rejected")
	}

	err := interceptor(context.Background(), "/test.Service/Method", nil, nil, nil, mockInvoker)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 invocations, got %d", calls)
	}
}

func TestManager_UnaryClientInterceptor_OtherErrorsPassThrough(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	tm := newTestManager(t, server, newTestConfig(server.URL))
	interceptor := tm.UnaryClientInterceptor()

	calls := 0
	mockInvoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		return status.Error(codes.PermissionDenied, "forbidden")
	}

	err := interceptor(context.Background(), "/test.Service/Method", nil, nil, nil, mockInvoker)
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
	if calls != 1 || server.Count() != 1 {
		t.Errorf("expected no retry, got %d invocations and %d auth calls", calls, server.Count())
	}
}

func TestManager_StreamClientInterceptor(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	tm := newTestManager(t, server, newTestConfig(server.URL))

	interceptor := tm.StreamClientInterceptor()
	if interceptor == nil {
		t.Fatal("interceptor should not be nil")
	}

	called := false
	mockStreamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		called = true
		if got := authorizationFrom(t, ctx); got != "Bearer mock-access-token" {
			t.Errorf("unexpected authorization: %q", got)
		}
		return nil, nil
	}

	if _, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/test.Service/Method", mockStreamer); err != nil {
		t.Errorf("interceptor failed: %v", err)
	}
	if !called {
		t.Error("streamer was not called")
	}
}

func TestInterceptors_TokenFetchError(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.StatusResponse(http.StatusBadRequest, `{"error":"invalid_client"}`))
	tm := newTestManager(t, server, newTestConfig(server.URL))

	unaryInterceptor := UnaryClientInterceptor(tm)
	err := unaryInterceptor(context.Background(), "/test", nil, nil, nil, func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		t.Error("invoker should not be called when token fetch fails")
		return nil
	})
	if !errors.Is(err, ErrRefreshExhausted) {
		t.Errorf("expected ErrRefreshExhausted from unary interceptor, got %v", err)
	}

	streamInterceptor := StreamClientInterceptor(tm)
	_, err = streamInterceptor(context.Background(), &grpc.StreamDesc{}, nil, "/test", func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		t.Error("streamer should not be called when token fetch fails")
		return nil, nil
	})
	if !errors.Is(err, ErrRefreshExhausted) {
		t.Errorf("expected ErrRefreshExhausted from stream interceptor, got %v", err)
	}
}

func TestUnaryClientInterceptor_WithBlockingView(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	tm := newTestAsyncManager(t, server, newTestConfig(server.URL))

	interceptor := UnaryClientInterceptor(tm.Blocking())
	err := interceptor(context.Background(), "/test", nil, nil, nil, func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		if got := authorizationFrom(t, ctx); got != "Bearer mock-access-token" {
			t.Errorf("unexpected authorization: %q", got)
		}
		return nil
	})
	if err != nil {
		t.Errorf("interceptor failed: %v", err)
	}
}
