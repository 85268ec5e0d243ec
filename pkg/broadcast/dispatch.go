package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relay/core/logger"
	"github.com/dmitrymomot/relay/pkg/async"
)

// Each calls fn for every live subscriber in slot order and returns how many received it.
// A panic raised by a subscriber propagates to the caller and stops the fan-out.
func (c *Channel[S]) Each(fn func(S)) int {
	n := c.forEach(func(svc S) bool {
		fn(svc)
		return true
	})
	c.listener.OnSend(c.name, n)
	return n
}

// EachErr is Each for methods that return an error. It stops at the first failing
// subscriber and returns its error; the failing subscriber is included in the count.
func (c *Channel[S]) EachErr(fn func(S) error) (int, error) {
	var err error
	n := c.forEach(func(svc S) bool {
		err = fn(svc)
		return err == nil
	})
	c.listener.OnSend(c.name, n)
	c.reportFailure("each", n, err)
	return n, err
}

// Call invokes fn on every live subscriber and collects the values in call order.
func Call[S, R any](c *Channel[S], fn func(S) R) Result[R] {
	b := resultBuilder[R]{hint: c.Count()}
	n := c.forEach(func(svc S) bool {
		b.add(fn(svc))
		return true
	})
	c.listener.OnSend(c.name, n)
	return b.result()
}

// CallErr is Call for methods that return a value and an error. It stops at the first
// error and returns the values collected before it.
func CallErr[S, R any](c *Channel[S], fn func(S) (R, error)) (Result[R], error) {
	b := resultBuilder[R]{hint: c.Count()}
	var err error
	n := c.forEach(func(svc S) bool {
		var v R
		v, err = fn(svc)
		if err != nil {
			return false
		}
		b.add(v)
		return true
	})
	c.listener.OnSend(c.name, n)
	c.reportFailure("call", n, err)
	return b.result(), err
}

// CallAsync starts fn on every live subscriber, collecting the returned futures before
// awaiting any of them, then waits for all. A failing future does not cancel the others;
// errors are joined in call order and failed positions hold the zero value.
// Subscribers returning a nil future are skipped.
func CallAsync[S, R any](c *Channel[S], fn func(S) *async.Future[R]) (Result[R], error) {
	var (
		first   *async.Future[R]
		futures []*async.Future[R]
		hint    = c.Count()
		start   = time.Now()
	)

	n := c.forEach(func(svc S) bool {
		f := fn(svc)
		switch {
		case f == nil:
		case first == nil:
			first = f
		default:
			if futures == nil {
				futures = make([]*async.Future[R], 0, max(hint, 2))
				futures = append(futures, first)
			}
			futures = append(futures, f)
		}
		return true
	})
	c.listener.OnSend(c.name, n)

	switch {
	case first == nil:
		return Result[R]{}, nil
	case futures == nil:
		v, err := first.Await()
		if err != nil {
			c.reportFailure("call_async", n, err, logger.Elapsed(start))
			return Result[R]{}, err
		}
		return ResultOf(v), nil
	default:
		values, err := async.WaitAll(futures...)
		c.reportFailure("call_async", n, err, logger.Elapsed(start))
		return ResultOf(values...), err
	}
}

func (c *Channel[S]) reportFailure(action string, receivers int, err error, attrs ...slog.Attr) {
	if err == nil {
		return
	}
	errAttr := logger.Error(err)
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errAttr = logger.Errors(joined.Unwrap()...)
	}
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "broadcast dispatch failed",
		append([]slog.Attr{
			logger.Component("broadcast"),
			logger.Service(c.name),
			logger.ChannelKey(c.key),
			logger.Action(action),
			logger.Receivers(receivers),
			errAttr,
		}, attrs...)...)
}
