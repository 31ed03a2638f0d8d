package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/AmmannChristian/go-sftoken/internal/tlsconfig"
	"github.com/AmmannChristian/go-sftoken/tokenmanager"
)

// Builder provides a fluent interface for constructing HTTP clients
// with optional password-grant authentication and TLS/mTLS support.
type Builder struct {
	// Token configuration
	tokens tokenmanager.TokenProvider
	logger Logger
	err    error

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsSkipVerify bool

	// HTTP client configuration
	timeout         time.Duration
	timeoutSet      bool
	baseTransport   http.RoundTripper
	followRedirects bool
}

// NewBuilder creates a new HTTP client builder.
func NewBuilder() *Builder {
	return &Builder{
		followRedirects: true,
	}
}

// WithTokenManager sets the token provider for automatic authentication.
// Both *tokenmanager.Manager and the blocking view of an AsyncManager qualify.
func (b *Builder) WithTokenManager(tp tokenmanager.TokenProvider) *Builder {
	b.tokens = tp
	return b
}

// WithPasswordGrant enables password-grant authentication by creating a new
// tokenmanager.Manager from cfg. Invalid configuration is reported by Build.
//
// The token manager keeps its own HTTP client for the auth endpoint; pass
// tokenmanager.WithHTTPClient in opts to customise it.
func (b *Builder) WithPasswordGrant(cfg tokenmanager.Config, opts ...tokenmanager.Option) *Builder {
	tm, err := tokenmanager.NewManager(cfg, opts...)
	if err != nil {
		b.err = err
		return b
	}
	b.tokens = tm
	return b
}

// WithLogger traces every protected request with sensitive headers masked.
func (b *Builder) WithLogger(logger Logger) *Builder {
	b.logger = logger
	return b
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (optional, uses system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
func (b *Builder) WithTLS(caFile, certFile, keyFile string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	return b
}

// WithInsecureSkipVerify disables TLS certificate verification (NOT RECOMMENDED for production).
// This should only be used for testing or development purposes.
func (b *Builder) WithInsecureSkipVerify() *Builder {
	b.tlsSkipVerify = true
	return b
}

// WithTimeout sets the request timeout for the HTTP client. It covers the
// whole request, including a token refresh and its backoff delays.
// Default is DefaultTimeout plus the token manager's backoff budget.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	b.timeoutSet = true
	return b
}

// WithBaseTransport sets a custom base transport.
// This is useful for adding custom middleware or using a custom connection pool.
func (b *Builder) WithBaseTransport(transport http.RoundTripper) *Builder {
	b.baseTransport = transport
	return b
}

// WithoutRedirects disables automatic redirect following.
// By default, the client follows up to 10 redirects.
func (b *Builder) WithoutRedirects() *Builder {
	b.followRedirects = false
	return b
}

// Build constructs the HTTP client with the configured options.
//
// Returns:
//   - *http.Client: Configured HTTP client
//   - error: Error if configuration is invalid
func (b *Builder) Build() (*http.Client, error) {
	if b.err != nil {
		return nil, fmt.Errorf("httpclient: token manager: %w", b.err)
	}

	// Build base transport
	transport := b.baseTransport
	if transport == nil {
		if httpTransport, ok := http.DefaultTransport.(*http.Transport); ok {
			httpTransport = httpTransport.Clone()

			if b.tlsEnabled || b.tlsSkipVerify {
				tlsConfig, err := b.buildTLSConfig()
				if err != nil {
					return nil, fmt.Errorf("httpclient: TLS config failed: %w", err)
				}
				httpTransport.TLSClientConfig = tlsConfig
			} else {
				// Set secure TLS defaults even when TLS is not explicitly configured
				httpTransport.TLSClientConfig = &tls.Config{
					MinVersion: tls.VersionTLS12,
				}
			}

			transport = httpTransport
		} else {
			// Fallback to whatever default transport is configured (e.g., a test stub)
			transport = http.DefaultTransport
			if b.tlsEnabled || b.tlsSkipVerify {
				if base, ok := transport.(*http.Transport); ok {
					tlsConfig, err := b.buildTLSConfig()
					if err != nil {
						return nil, fmt.Errorf("httpclient: TLS config failed: %w", err)
					}
					cloned := base.Clone()
					cloned.TLSClientConfig = tlsConfig
					transport = cloned
				}
			}
		}
	}

	// Wrap with the auth pipeline if a token provider is set
	if b.tokens != nil {
		var opts []TransportOption
		if b.logger != nil {
			opts = append(opts, WithLogger(b.logger))
		}
		transport = NewAuthTransport(b.tokens, transport, opts...)
	}

	timeout := b.timeout
	if !b.timeoutSet {
		timeout = defaultTimeout(b.tokens)
	}

	// Build HTTP client
	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	// Configure redirect policy
	if !b.followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client, nil
}

// buildTLSConfig constructs the TLS configuration for the HTTP client.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	return tlsconfig.Build(tlsconfig.Options{
		CAFile:             b.tlsCAFile,
		CertFile:           b.tlsCertFile,
		KeyFile:            b.tlsKeyFile,
		InsecureSkipVerify: b.tlsSkipVerify,
	})
}

// BuildClient is like Build but returns a Client whose Do reports a final 401
// as *UnauthorizedError.
func (b *Builder) BuildClient() (*Client, error) {
	c, err := b.Build()
	if err != nil {
		return nil, err
	}
	return WrapClient(c), nil
}

// NewHTTPClient is a convenience function that creates a simple HTTP client
// authenticated with tp. For more configuration options, use Builder instead.
//
// Example:
//
//	tm, err := tokenmanager.NewManager(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := httpclient.NewHTTPClient(tm)
//	resp, err := client.Get("https://na1.example.com/services/data/v60.0/limits")
func NewHTTPClient(tp tokenmanager.TokenProvider) *http.Client {
	transport := NewAuthTransport(tp, nil)
	return &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout(tp),
	}
}
