package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AmmannChristian/go-sftoken/future"
	"github.com/AmmannChristian/go-sftoken/tokenmanager"
)

// ErrUpstreamUnauthorized is matched by UnauthorizedError.
var ErrUpstreamUnauthorized = errors.New("httpclient: upstream unauthorized")

// UnauthorizedError reports that the protected endpoint still answered 401
// after the token was refreshed and the request resent.
type UnauthorizedError struct {
	Method string
	URL    string
	// Body is the beginning of the final response body.
	Body string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("httpclient: %s %s unauthorized after token refresh", e.Method, e.URL)
}

// Is reports whether target is ErrUpstreamUnauthorized.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUpstreamUnauthorized
}

const unauthorizedBodyLimit = 4 << 10

// DefaultTimeout bounds one request, refresh backoff excluded.
const DefaultTimeout = 30 * time.Second

// backoffBudgeter is implemented by the tokenmanager managers.
type backoffBudgeter interface {
	BackoffBudget() time.Duration
}

// defaultTimeout extends DefaultTimeout by the backoff budget of tp, so a
// refresh running inside the transport is exhausted before the client gives up.
func defaultTimeout(tp tokenmanager.TokenProvider) time.Duration {
	if b, ok := tp.(backoffBudgeter); ok {
		return DefaultTimeout + b.BackoffBudget()
	}
	return DefaultTimeout
}

// Client sends authenticated requests and turns a final 401 into an error.
type Client struct {
	http *http.Client
}

// NewClient creates a Client that authenticates with tp over http.DefaultTransport.
//
// The client timeout covers the whole pipeline, token refresh included. It is
// DefaultTimeout plus tp's backoff budget when tp reports one, as the
// tokenmanager managers do. Use Builder.WithTimeout to choose another bound.
func NewClient(tp tokenmanager.TokenProvider, opts ...TransportOption) *Client {
	return &Client{
		http: &http.Client{
			Transport: NewAuthTransport(tp, nil, opts...),
			Timeout:   defaultTimeout(tp),
		},
	}
}

// WrapClient uses an already authenticated *http.Client, e.g. one from Builder.Build.
func WrapClient(c *http.Client) *Client {
	return &Client{http: c}
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends req through the authenticated pipeline.
//
// Non-401 responses are returned unchanged, including other error statuses;
// the caller must close the body. A 401 that survives the one-shot refresh is
// returned as *UnauthorizedError with the response body consumed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, unauthorizedBodyLimit))
		drain(resp)
		return nil, &UnauthorizedError{
			Method: req.Method,
			URL:    req.URL.Redacted(),
			Body:   string(body),
		}
	}

	return resp, nil
}

// AsyncClient is the non-blocking counterpart of Client.
type AsyncClient struct {
	client *Client
}

// NewAsyncClient creates an AsyncClient that authenticates with m.
func NewAsyncClient(m *tokenmanager.AsyncManager, opts ...TransportOption) *AsyncClient {
	return &AsyncClient{client: NewClient(m.Blocking(), opts...)}
}

// Do sends req on its own goroutine. Cancelling ctx cancels the token lookup,
// any refresh backoff and the protected request.
func (c *AsyncClient) Do(ctx context.Context, req *http.Request) *future.Future[*http.Response] {
	return future.Go(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.client.Do(req.WithContext(ctx))
	})
}
