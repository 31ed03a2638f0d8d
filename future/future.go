// Package future provides a minimal deferred-result type used by the
// non-blocking token manager and HTTP client.
package future

import "context"

// Future holds the result of an operation running on its own goroutine.
// It is completed exactly once and may be awaited by any number of callers.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts fn on a new goroutine and returns its Future. ctx is handed to
// fn unchanged, so cancelling it cancels every stage fn chains.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()

	return f
}

// Resolved returns an already completed Future holding val.
func Resolved[T any](val T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val}
	close(f.done)
	return f
}

// Failed returns an already completed Future holding err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done. Giving up on
// the wait does not cancel the operation; cancel the context passed to Go.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the result is available.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Then chains fn after f. fn runs only if f succeeded; otherwise the returned
// Future carries f's error.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(ctx context.Context, val T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		val, err := f.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(ctx, val)
	})
}
