// Package testutil provides test helpers for go-sftoken packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6 in sandboxes),
// mock identity and API endpoints without real sockets, and generate self-signed certificates
// for TLS/mTLS tests.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - MockEndpoint / NewMockAuthServer: in-memory endpoints that record requests and bodies
//   - Sequence, StatusResponse, ErrorResponse: scripted responses
//   - RoundTripFunc: inline http.RoundTripper implementations
//   - WriteTestCACert / WriteTestCertAndKey: generate temporary CA and leaf certificates for tests
//
// Mock endpoints never touch http.DefaultClient or http.DefaultTransport; pass MockEndpoint.Client
// or MockEndpoint.Ctx to the code under test.
package testutil
