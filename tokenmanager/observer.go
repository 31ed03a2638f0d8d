package tokenmanager

// KindTokenRefreshException is the failure kind reported once per exhausted refresh.
const KindTokenRefreshException = "token_refresh_exception"

// FailureObserver is notified when a refresh gives up.
type FailureObserver interface {
	Increment(kind string)
}

// FailureObserverFunc adapts a function to FailureObserver.
type FailureObserverFunc func(kind string)

// Increment calls f(kind).
func (f FailureObserverFunc) Increment(kind string) {
	f(kind)
}

type noopObserver struct{}

func (noopObserver) Increment(string) {}
