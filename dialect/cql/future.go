package cql

import "context"

// Future is the pending result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Async runs fn in a new goroutine. The context is passed to fn unchanged,
// so cancelling it cancels the operation.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Done returns a channel closed when the operation completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the operation completes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// QueryAsync executes a read asynchronously.
func QueryAsync(ctx context.Context, d Driver, st *Statement) *Future[Rows] {
	return Async(ctx, func(ctx context.Context) (Rows, error) {
		return d.Query(ctx, st)
	})
}

// ExecAsync executes a write asynchronously.
func ExecAsync(ctx context.Context, d Driver, st *Statement) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return d.Exec(ctx, st)
	})
}
