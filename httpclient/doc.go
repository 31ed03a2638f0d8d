// Package httpclient sends HTTP requests authenticated with a managed password-grant token.
//
// Requests pass through a fixed middleware pipeline: the Content-Type defaults to
// application/json, the Authorization header is set from the token cache (refreshing
// when empty), and a 401 from the protected endpoint triggers exactly one forced
// token refresh and one resend. The pipeline is an http.RoundTripper, so it composes
// with any *http.Client. A fluent Builder adds TLS/mTLS, timeouts, base transports
// and redirect handling on top.
//
// # Features
//
//   - AuthTransport and Chain for manual composition of Middleware
//   - Client.Do reports a 401 that survives the refresh as *UnauthorizedError
//   - AsyncClient returns a future.Future per request
//   - TLS 1.2+ by default, with custom CA/mTLS and optional InsecureSkipVerify
//   - Optional request tracing with Authorization and cookies masked
//
// # Quick Start
//
//	client, err := httpclient.NewBuilder().
//	    WithPasswordGrant(cfg).
//	    WithTLS("/path/to/ca.crt", "", "").
//	    WithTimeout(60 * time.Second).
//	    BuildClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req, _ := http.NewRequest(http.MethodGet, instanceURL+"/services/data/v60.0/limits", nil)
//	resp, err := client.Do(req)
//	if errors.Is(err, httpclient.ErrUpstreamUnauthorized) {
//	    // credentials rejected even after a fresh token
//	}
//
// # Manual Transport Wrapping
//
//	transport := httpclient.NewAuthTransport(tm, nil)
//	client := &http.Client{Transport: transport}
//
// All components are safe for concurrent use if the provided token provider is.
package httpclient
