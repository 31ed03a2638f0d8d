// Package tokenmanager obtains, caches and refreshes a password-grant bearer
// token from a single identity endpoint.
//
// The token is requested with a form-encoded POST to Config.Host +
// Config.AuthPath (default "/services/oauth2/token") and cached as
// "<token_type> <access_token>", ready to be used as an Authorization header.
// Refreshes are retried with backoff; when every attempt fails the registered
// FailureObserver is incremented once with KindTokenRefreshException and the
// caller receives a *RefreshExhaustedError.
//
// # Features
//
//   - Lock-free credential Store shared by all callers
//   - Single-shot Issuer that parses the endpoint's JSON response into an *oauth2.Token
//   - Blocking Manager with multiplicative backoff that clears the cache on exhaustion
//   - Non-blocking AsyncManager returning futures, with jittered backoff and
//     context cancellation of auth calls and pending delays
//   - gRPC unary and stream client interceptors with one-shot refresh on Unauthenticated
//   - Optional logging (WithLogger, WithLoggingEnabled) and failure observation
//   - Configuration from .env files and the environment (LoadConfig)
//
// # Quick Start
//
//	cfg, err := tokenmanager.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tm, err := tokenmanager.NewManager(cfg, tokenmanager.WithLoggingEnabled())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token, err := tm.Token(ctx) // "Bearer 00D..."
//
// # Notes
//
//   - MaxRefreshAttempts counts every attempt, the first one included.
//   - Concurrent refreshes are not deduplicated; the last successful one wins.
//   - The token lives in memory only and is fetched again after a restart.
package tokenmanager
