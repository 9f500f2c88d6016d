package hudi

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrFutureResolved is returned when a Future is resolved a second time.
	ErrFutureResolved = errors.New("future already resolved")

	// ErrNotReady is returned by Result before the Future resolves.
	ErrNotReady = errors.New("future not ready")
)

// Future is a value or error that becomes available exactly once.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture returns an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and resolves the returned Future with its
// result. fn should watch ctx; the goroutine exits when fn returns.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		val, err := fn(ctx)
		_ = f.Resolve(val, err)
	}()
	return f
}

// Resolve sets the result. Only the first call has an effect.
func (f *Future[T]) Resolve(val T, err error) error {
	resolved := false
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
		resolved = true
	})
	if !resolved {
		return ErrFutureResolved
	}
	return nil
}

// Done is closed once the Future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the Future is resolved.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value without blocking; before resolution it
// returns the zero value and ErrNotReady.
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, ErrNotReady
	}
	return f.val, f.err
}

// Await blocks until the Future resolves or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
