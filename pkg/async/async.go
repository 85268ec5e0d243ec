package async

import (
	"context"
	"errors"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	value U
	err   error
	done  chan struct{}
}

// Await waits for the asynchronous function to complete and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.value, f.err
}

// AwaitContext waits for completion or for ctx to be done, whichever comes first.
// The computation keeps running when ctx wins.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for the asynchronous function to complete with a timeout.
// If the timeout occurs before completion, returns ErrTimeout.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async executes fn in its own goroutine and returns a Future for its result.
// A panic inside fn is recovered and reported as the future's error.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		// Early exit when the context is already canceled
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		var pc panics.Catcher
		pc.Try(func() {
			f.value, f.err = fn(ctx, param)
		})
		if r := pc.Recovered(); r != nil {
			var zero U
			f.value, f.err = zero, r.AsError()
		}
	}()

	return f
}

// Completed returns a future that is already resolved with value and err.
func Completed[U any](value U, err error) *Future[U] {
	f := &Future[U]{value: value, err: err, done: make(chan struct{})}
	close(f.done)
	return f
}

// WaitAll waits for every future to complete and returns their results in argument order.
// It never stops early: a failing future does not cancel or skip its siblings. All errors
// are joined in argument order; results of failed futures hold the zero value.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	var errs []error

	for i, future := range futures {
		v, err := future.Await()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results[i] = v
	}

	return results, errors.Join(errs...)
}

// WaitAny waits for any of the futures to complete and returns the index of the completed
// future with its result. One goroutine is spawned per future; each exits when its future completes.
func WaitAny[U any](futures ...*Future[U]) (int, U, error) {
	if len(futures) == 0 {
		var zero U
		return -1, zero, ErrNoFutures
	}

	type outcome struct {
		index int
		value U
		err   error
	}
	done := make(chan outcome, len(futures))

	for i, future := range futures {
		go func(index int, f *Future[U]) {
			v, err := f.Await()
			done <- outcome{index: index, value: v, err: err}
		}(i, future)
	}

	res := <-done
	return res.index, res.value, res.err
}
