package httpclient

import (
	"errors"
	"net/http"

	"github.com/AmmannChristian/go-sftoken/tokenmanager"
)

// Logger is the optional logger used for request tracing.
type Logger = tokenmanager.Logger

// AuthTransport is an http.RoundTripper that authenticates outgoing requests
// with a managed token.
//
// Each request passes through ContentType("application/json"), Authorize and
// RefreshOnUnauthorized before reaching Base. A 401 from the protected
// endpoint triggers exactly one token refresh and one resend; the response
// of the resend is returned unchanged.
type AuthTransport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// Tokens provides the Authorization value.
	Tokens tokenmanager.TokenProvider

	// Logger traces every send with sensitive headers masked. Optional.
	Logger Logger
}

// TransportOption configures an AuthTransport.
type TransportOption func(*AuthTransport)

// WithLogger enables request tracing on the transport.
func WithLogger(logger Logger) TransportOption {
	return func(t *AuthTransport) {
		t.Logger = logger
	}
}

// RoundTrip implements http.RoundTripper.
// The token lookup, any refresh and both sends use the request context.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Tokens == nil {
		closeBody(req)
		return nil, errors.New("httpclient: token provider is nil")
	}

	return Chain(t.Base, t.middlewares()...).RoundTrip(req)
}

func (t *AuthTransport) middlewares() []Middleware {
	mws := []Middleware{
		ContentType("application/json"),
		Authorize(t.Tokens),
		RefreshOnUnauthorized(t.Tokens),
	}
	if t.Logger != nil {
		mws = append(mws, LogRequests(t.Logger))
	}
	return mws
}

// NewAuthTransport creates an AuthTransport for tp.
// The base transport defaults to http.DefaultTransport if not specified.
func NewAuthTransport(tp tokenmanager.TokenProvider, base http.RoundTripper, opts ...TransportOption) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	t := &AuthTransport{
		Base:   base,
		Tokens: tp,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
