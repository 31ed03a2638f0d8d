// Package grpcclient provides a fluent builder for secure gRPC client connections
// authenticated with a managed password-grant token.
//
// It defaults to TLS 1.2+ using system roots so tokens are never sent in plaintext.
// Optional methods add the token interceptors from tokenmanager, custom CA or mTLS
// credentials, and extra dial options.
//
// # Features
//
//   - Fluent builder for gRPC clients
//   - "authorization" metadata on every unary and streaming call
//   - One forced refresh and retry when a unary call fails with codes.Unauthenticated
//   - Secure-by-default TLS; optional custom CA and mTLS
//
// # Quick Start
//
//	cfg, err := tokenmanager.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conn, err := grpcclient.NewBuilder().
//	    WithAddress("api.example.com:443").
//	    WithPasswordGrant(cfg).
//	    WithTLS("/path/to/ca.crt", "", "", "api.example.com").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	client := pb.NewYourServiceClient(conn)
//
// # Sharing a Token Cache
//
// WithTokenManager accepts an existing *tokenmanager.Manager, or the blocking view of
// an AsyncManager, so HTTP and gRPC clients can share one cached token.
package grpcclient
