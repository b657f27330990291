package loader

import (
	"context"
	"sync"
)

// Result of an asynchronous operation, resolved exactly once
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolves the future. Later calls are ignored.
func (f *Future[T]) Resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Closed once the future is resolved
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Non blocking check used by the render loop
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Blocks until the future is resolved or ctx is done
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Value and error of a resolved future, the zero value when still pending
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, nil
	}
	return f.value, f.err
}
