package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/AmmannChristian/go-sftoken/tokenmanager"
)

// maskedValue replaces sensitive header values in log output.
const maskedValue = "************"

// Handler sends a request and returns its response.
type Handler func(req *http.Request) (*http.Response, error)

// Middleware wraps a single send. It may modify a clone of req, call next any
// number of times, and inspect or replace the response.
type Middleware func(req *http.Request, next Handler) (*http.Response, error)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain composes middlewares around base. The first middleware is the
// outermost one. A nil base means http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	next := Handler(base.RoundTrip)
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(req *http.Request) (*http.Response, error) {
			return mw(req, inner)
		}
	}

	return roundTripperFunc(next)
}

// ContentType sets the Content-Type header to ct when the caller did not set one.
func ContentType(ct string) Middleware {
	return func(req *http.Request, next Handler) (*http.Response, error) {
		if req.Header.Get("Content-Type") != "" {
			return next(req)
		}

		reqClone := req.Clone(req.Context())
		reqClone.Header.Set("Content-Type", ct)
		return next(reqClone)
	}
}

// Authorize sets the Authorization header from the provider's cached token,
// refreshing when nothing is cached. The stored credential already carries
// its token type, e.g. "Bearer 00D...".
func Authorize(tp tokenmanager.TokenProvider) Middleware {
	return func(req *http.Request, next Handler) (*http.Response, error) {
		token, err := tp.Token(req.Context())
		if err != nil {
			closeBody(req)
			return nil, fmt.Errorf("httpclient: failed to get token: %w", err)
		}

		reqClone := req.Clone(req.Context())
		reqClone.Header.Set("Authorization", token)
		return next(reqClone)
	}
}

// RefreshOnUnauthorized sends the request and, if the response is 401, forces
// one token refresh and resends the request once with the new token. The
// second response is returned as is, whatever its status.
//
// Request bodies without GetBody are buffered so they can be replayed.
func RefreshOnUnauthorized(tp tokenmanager.TokenProvider) Middleware {
	return func(req *http.Request, next Handler) (*http.Response, error) {
		req, err := rewindable(req)
		if err != nil {
			return nil, err
		}

		resp, err := next(req)
		if err != nil || resp.StatusCode != http.StatusUnauthorized {
			return resp, err
		}

		drain(resp)

		token, err := tp.Refresh(req.Context())
		if err != nil {
			closeBody(req)
			return nil, fmt.Errorf("httpclient: failed to refresh token: %w", err)
		}

		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("httpclient: rewind request body: %w", err)
			}
			retry.Body = body
		}
		retry.Header.Set("Authorization", token)

		return next(retry)
	}
}

// LogRequests logs every send with sensitive headers masked.
func LogRequests(logger Logger) Middleware {
	return func(req *http.Request, next Handler) (*http.Response, error) {
		logger.Printf("httpclient: %s %s headers=%s", req.Method, req.URL.Redacted(), maskHeaders(req.Header))

		resp, err := next(req)
		if err != nil {
			logger.Printf("httpclient: %s %s failed: %v", req.Method, req.URL.Redacted(), err)
			return nil, err
		}

		logger.Printf("httpclient: %s %s -> %d headers=%s", req.Method, req.URL.Redacted(), resp.StatusCode, maskHeaders(resp.Header))
		return resp, nil
	}
}

// rewindable returns req with GetBody set, buffering the body if necessary.
func rewindable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("httpclient: buffer request body: %w", err)
	}

	reqClone := req.Clone(req.Context())
	reqClone.Body = io.NopCloser(bytes.NewReader(data))
	reqClone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	reqClone.ContentLength = int64(len(data))
	return reqClone, nil
}

// closeBody closes the request body on paths that return before a send,
// as http.RoundTripper requires.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
}

// maskHeaders renders h in a stable order with sensitive values masked.
func maskHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(h[k], ",")
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			value = maskedValue
		}
		parts = append(parts, k+": "+value)
	}
	return "{" + strings.Join(parts, "; ") + "}"
}
