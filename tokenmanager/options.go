package tokenmanager

import (
	"log"
	"net/http"

	"github.com/AmmannChristian/go-sftoken/retry"
)

// Logger is an interface for optional logging in the token managers.
// Implementations can log token refresh events if desired.
type Logger interface {
	Printf(format string, args ...any)
}

// Option is a functional option for configuring Issuer, Manager and AsyncManager.
type Option func(*options)

type options struct {
	logger     Logger
	httpClient *http.Client
	observer   FailureObserver
	sleep      retry.Sleeper
}

func newOptions(opts []Option) *options {
	o := &options{observer: noopObserver{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) logf(format string, args ...any) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
	}
}

// WithLogger sets a custom logger for token refresh events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
// This is a convenience option that sets the logger to log.Default().
func WithLoggingEnabled() Option {
	return func(o *options) {
		o.logger = log.Default()
	}
}

// WithHTTPClient sets the client used to call the identity endpoint.
// It is kept separate from the client that calls the protected API.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithFailureObserver registers the observer notified once per exhausted refresh.
func WithFailureObserver(observer FailureObserver) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// withSleeper replaces the backoff wait; used by tests.
func withSleeper(sleep retry.Sleeper) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}
