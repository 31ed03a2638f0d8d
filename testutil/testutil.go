package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// NewLocalHTTPServer starts an HTTP server bound to IPv4 loopback only.
// The sandbox blocks IPv6 listeners, so force tcp4 to keep tests runnable.
func NewLocalHTTPServer(tb testing.TB, handler http.Handler) *httptest.Server {
	tb.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()
	tb.Cleanup(server.Close)

	return server
}

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RecordedRequest is a snapshot of a request seen by a mock endpoint.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// MockEndpoint simulates an HTTP endpoint without real sockets.
// It records every request and answers through handler. Safe for concurrent use.
type MockEndpoint struct {
	URL string

	// Ctx carries Client under oauth2.HTTPClient for code that honours it.
	Ctx context.Context

	// Client sends every request to the mock.
	Client *http.Client

	mu       sync.Mutex
	requests []RecordedRequest
	handler  RoundTripFunc
}

// NewMockEndpoint builds a mock endpoint at url backed by an in-memory RoundTripper.
func NewMockEndpoint(tb testing.TB, url string, handler RoundTripFunc) *MockEndpoint {
	tb.Helper()

	m := &MockEndpoint{URL: url, handler: handler}

	rt := RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		var body []byte
		if req.Body != nil {
			var err error
			body, err = io.ReadAll(req.Body)
			if err != nil {
				tb.Errorf("failed to read request body: %v", err)
			}
			_ = req.Body.Close()
		}

		m.mu.Lock()
		m.requests = append(m.requests, RecordedRequest{
			Method: req.Method,
			Path:   req.URL.Path,
			Header: req.Header.Clone(),
			Body:   string(body),
		})
		m.mu.Unlock()

		if err := req.Context().Err(); err != nil {
			return nil, err
		}

		return m.handler(req)
	})

	m.Client = &http.Client{Transport: rt}
	m.Ctx = context.WithValue(context.Background(), oauth2.HTTPClient, m.Client)

	return m
}

// Requests returns a copy of the recorded requests.
func (m *MockEndpoint) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Count returns the number of recorded requests.
func (m *MockEndpoint) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Transport returns the endpoint's RoundTripper.
func (m *MockEndpoint) Transport() http.RoundTripper {
	return m.Client.Transport
}

// NewMockAuthServer builds a mock identity endpoint.
// If handler is nil, it returns a default successful token response.
func NewMockAuthServer(tb testing.TB, handler RoundTripFunc) *MockEndpoint {
	tb.Helper()

	if handler == nil {
		handler = StaticJSONResponse(`{
			"access_token": "mock-access-token",
			"token_type": "Bearer",
			"instance_url": "https://mock-instance.example.com"
		}`)
	}

	return NewMockEndpoint(tb, "https://mock-auth.example.com", handler)
}

// Sequence answers the n-th request with the n-th handler and repeats the
// last handler once the list is used up. Safe for concurrent use.
func Sequence(handlers ...RoundTripFunc) RoundTripFunc {
	var (
		mu sync.Mutex
		n  int
	)

	return func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		h := handlers[min(n, len(handlers)-1)]
		n++
		mu.Unlock()

		return h(req)
	}
}

// StaticJSONResponse returns a RoundTripper that always responds 200 with the provided JSON body.
func StaticJSONResponse(body string) RoundTripFunc {
	return StatusResponse(http.StatusOK, body)
}

// StatusResponse returns a RoundTripper that always responds with status and body.
func StatusResponse(status int, body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		return NewResponse(req, status, body), nil
	}
}

// ErrorResponse returns a RoundTripper that always fails with err.
func ErrorResponse(err error) RoundTripFunc {
	return func(*http.Request) (*http.Response, error) {
		return nil, err
	}
}

// NewResponse builds an *http.Response for req.
func NewResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// TokenResponse renders a successful identity endpoint response.
func TokenResponse(accessToken, tokenType string) string {
	return `{"access_token":"` + accessToken + `","token_type":"` + tokenType + `"}`
}

// WriteTestCACert writes a self-signed CA certificate to the provided path for TLS tests.
func WriteTestCACert(tb testing.TB, path string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate CA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		Subject:               pkix.Name{CommonName: "test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		tb.Fatalf("failed to create CA certificate: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		tb.Fatalf("failed to write CA certificate: %v", err)
	}
}

// WriteTestCertAndKey writes a self-signed certificate and key to the provided paths.
func WriteTestCertAndKey(tb testing.TB, certPath, keyPath string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		Subject:      pkix.Name{CommonName: "test-cert"},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		tb.Fatalf("failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		tb.Fatalf("failed to write certificate: %v", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		tb.Fatalf("failed to write key: %v", err)
	}
}
