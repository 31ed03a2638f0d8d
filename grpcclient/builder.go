package grpcclient

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/AmmannChristian/go-sftoken/internal/tlsconfig"
	"github.com/AmmannChristian/go-sftoken/tokenmanager"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Builder provides a fluent interface for constructing gRPC client connections
// with optional password-grant authentication and TLS/mTLS support.
type Builder struct {
	address string

	// Token configuration
	tokens       tokenmanager.TokenProvider
	grantEnabled bool
	grantConfig  tokenmanager.Config
	grantOpts    []tokenmanager.Option

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsServerName string

	// Additional dial options
	dialOpts []grpc.DialOption
}

// NewBuilder creates a new gRPC client builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithAddress sets the server address (e.g., "server.example.com:9090").
func (b *Builder) WithAddress(address string) *Builder {
	b.address = address
	return b
}

// WithTokenManager authenticates calls with an existing token provider, so
// several connections can share one token cache.
func (b *Builder) WithTokenManager(tp tokenmanager.TokenProvider) *Builder {
	b.tokens = tp
	b.grantEnabled = false
	return b
}

// WithPasswordGrant enables password-grant authentication. A new
// tokenmanager.Manager is created from cfg when Build is called.
func (b *Builder) WithPasswordGrant(cfg tokenmanager.Config, opts ...tokenmanager.Option) *Builder {
	b.grantEnabled = true
	b.grantConfig = cfg
	b.grantOpts = opts
	b.tokens = nil
	return b
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
//   - serverName: Expected server name for TLS verification (optional, overrides SNI)
func (b *Builder) WithTLS(caFile, certFile, keyFile, serverName string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	b.tlsServerName = serverName
	return b
}

// WithDialOptions adds custom gRPC dial options.
// These options are applied after the token interceptors and TLS options.
func (b *Builder) WithDialOptions(opts ...grpc.DialOption) *Builder {
	b.dialOpts = append(b.dialOpts, opts...)
	return b
}

// Build constructs the gRPC client connection with the configured options.
// Unary calls rejected with codes.Unauthenticated are retried once after a
// forced token refresh.
func (b *Builder) Build() (*grpc.ClientConn, error) {
	if b.address == "" {
		return nil, errors.New("grpcclient: server address is required")
	}

	var opts []grpc.DialOption

	tokens, err := b.tokenProvider()
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		opts = append(opts,
			grpc.WithUnaryInterceptor(tokenmanager.UnaryClientInterceptor(tokens)),
			grpc.WithStreamInterceptor(tokenmanager.StreamClientInterceptor(tokens)),
		)
	}

	// Add TLS credentials if enabled
	if b.tlsEnabled {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("grpcclient: TLS config failed: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		// Default to TLS with system roots to avoid sending tokens in plaintext.
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})))
	}

	opts = append(opts, b.dialOpts...)

	conn, err := grpc.NewClient(b.address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dial failed: %w", err)
	}

	return conn, nil
}

// tokenProvider returns the configured provider, creating a Manager for the
// password grant. It returns nil if authentication is disabled.
func (b *Builder) tokenProvider() (tokenmanager.TokenProvider, error) {
	if !b.grantEnabled {
		return b.tokens, nil
	}

	tm, err := tokenmanager.NewManager(b.grantConfig, b.grantOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: %w", err)
	}
	return tm, nil
}

// buildTLSConfig constructs the TLS configuration for the gRPC connection.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	return tlsconfig.Build(tlsconfig.Options{
		CAFile:     b.tlsCAFile,
		CertFile:   b.tlsCertFile,
		KeyFile:    b.tlsKeyFile,
		ServerName: b.tlsServerName,
	})
}
