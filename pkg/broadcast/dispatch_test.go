package broadcast_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/async"
	"github.com/dmitrymomot/relay/pkg/broadcast"
)

// validator is a service whose methods report errors or return futures.
type validator interface {
	Validate(v string) error
	Score(v string) (int, error)
	ScoreAsync(ctx context.Context, v string) *async.Future[int]
}

type stubValidator struct {
	score int
	err   error
	delay time.Duration
	calls *atomic.Int32
}

func (s stubValidator) Validate(string) error {
	s.calls.Add(1)
	return s.err
}

func (s stubValidator) Score(string) (int, error) {
	s.calls.Add(1)
	return s.score, s.err
}

func (s stubValidator) ScoreAsync(ctx context.Context, v string) *async.Future[int] {
	s.calls.Add(1)
	return async.Async(ctx, v, func(context.Context, string) (int, error) {
		time.Sleep(s.delay)
		return s.score, s.err
	})
}

func TestEach(t *testing.T) {
	t.Parallel()

	ch := broadcast.NewChannel[notifier]()
	boxes := []*inbox{{}, {}, {}}
	for _, b := range boxes {
		ch.Open(b)
	}

	n := ch.Each(func(s notifier) { s.Notify("hi") })
	assert.Equal(t, 3, n)
	for _, b := range boxes {
		assert.Equal(t, []string{"hi"}, b.received())
	}

	t.Run("panic propagates and stops fan-out", func(t *testing.T) {
		ch := broadcast.NewChannel[notifier]()
		tail := &inbox{}
		ch.Open(notifierFunc(func(string) { panic("boom") }))
		ch.Open(tail)

		assert.PanicsWithValue(t, "boom", func() {
			ch.Each(func(s notifier) { s.Notify("x") })
		})
		assert.Empty(t, tail.received())
	})
}

func TestEachErr(t *testing.T) {
	t.Parallel()

	errInvalid := errors.New("invalid")
	var calls atomic.Int32

	ch := broadcast.NewChannel[validator]()
	ch.Open(stubValidator{calls: &calls})
	ch.Open(stubValidator{err: errInvalid, calls: &calls})
	ch.Open(stubValidator{calls: &calls})

	n, err := ch.EachErr(func(v validator) error { return v.Validate("x") })
	require.ErrorIs(t, err, errInvalid)
	assert.Equal(t, 2, n, "failing subscriber is counted")
	assert.Equal(t, int32(2), calls.Load(), "fan-out stops at the first error")

	t.Run("no error reaches everyone", func(t *testing.T) {
		var calls atomic.Int32
		ch := broadcast.NewChannel[validator]()
		ch.Open(stubValidator{calls: &calls})
		ch.Open(stubValidator{calls: &calls})

		n, err := ch.EachErr(func(v validator) error { return v.Validate("x") })
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestCall(t *testing.T) {
	t.Parallel()

	t.Run("single subscriber", func(t *testing.T) {
		t.Parallel()

		ch := broadcast.NewChannel[doubler]()
		ch.Open(doublerFunc(double))

		res := broadcast.Call(ch, func(d doubler) int { return d.Double(21) })
		v, ok := res.Single()
		require.True(t, ok)
		assert.Equal(t, 42, v)
	})

	t.Run("no subscribers", func(t *testing.T) {
		t.Parallel()

		ch := broadcast.NewChannel[doubler]()
		res := broadcast.Call(ch, func(d doubler) int { return d.Double(21) })
		assert.True(t, res.Empty())
		_, ok := res.Single()
		assert.False(t, ok)
	})
}

func TestCallErr(t *testing.T) {
	t.Parallel()

	errLow := errors.New("score too low")
	var calls atomic.Int32

	ch := broadcast.NewChannel[validator]()
	ch.Open(stubValidator{score: 1, calls: &calls})
	ch.Open(stubValidator{score: 2, calls: &calls})
	ch.Open(stubValidator{err: errLow, calls: &calls})
	ch.Open(stubValidator{score: 4, calls: &calls})

	res, err := broadcast.CallErr(ch, func(v validator) (int, error) { return v.Score("x") })
	require.ErrorIs(t, err, errLow)
	assert.Equal(t, []int{1, 2}, res.All())
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallAsync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	score := func(v validator) *async.Future[int] { return v.ScoreAsync(ctx, "x") }

	t.Run("no subscribers completes immediately", func(t *testing.T) {
		t.Parallel()

		ch := broadcast.NewChannel[validator]()
		res, err := broadcast.CallAsync(ch, score)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("single subscriber", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		ch := broadcast.NewChannel[validator]()
		ch.Open(stubValidator{score: 7, calls: &calls})

		res, err := broadcast.CallAsync(ch, score)
		require.NoError(t, err)
		v, ok := res.Single()
		require.True(t, ok)
		assert.Equal(t, 7, v)
	})

	t.Run("single subscriber error", func(t *testing.T) {
		t.Parallel()

		errFail := errors.New("fail")
		var calls atomic.Int32
		ch := broadcast.NewChannel[validator]()
		ch.Open(stubValidator{err: errFail, calls: &calls})

		res, err := broadcast.CallAsync(ch, score)
		require.ErrorIs(t, err, errFail)
		assert.True(t, res.Empty())
	})

	t.Run("results keep call order", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		ch := broadcast.NewChannel[validator]()
		ch.Open(stubValidator{score: 1, delay: 30 * time.Millisecond, calls: &calls})
		ch.Open(stubValidator{score: 2, delay: 10 * time.Millisecond, calls: &calls})
		ch.Open(stubValidator{score: 3, calls: &calls})

		res, err := broadcast.CallAsync(ch, score)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, res.All())
	})

	t.Run("failure does not cancel siblings", func(t *testing.T) {
		t.Parallel()

		errFirst := errors.New("first")
		errSecond := errors.New("second")
		var calls atomic.Int32

		ch := broadcast.NewChannel[validator]()
		ch.Open(stubValidator{err: errFirst, calls: &calls})
		ch.Open(stubValidator{score: 5, delay: 20 * time.Millisecond, calls: &calls})
		ch.Open(stubValidator{err: errSecond, calls: &calls})

		res, err := broadcast.CallAsync(ch, score)
		require.Error(t, err)
		assert.ErrorIs(t, err, errFirst)
		assert.ErrorIs(t, err, errSecond)
		assert.Equal(t, []int{0, 5, 0}, res.All())
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("subscriber panic surfaces as error", func(t *testing.T) {
		t.Parallel()

		ch := broadcast.NewChannel[doubler]()
		ch.Open(doublerFunc(double))
		ch.Open(doublerFunc(func(int) int { panic("bad subscriber") }))

		res, err := broadcast.CallAsync(ch, func(d doubler) *async.Future[int] {
			return async.Async(ctx, 3, func(_ context.Context, x int) (int, error) {
				return d.Double(x), nil
			})
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad subscriber")
		assert.Equal(t, 2, res.Len())
	})

	t.Run("nil futures are skipped", func(t *testing.T) {
		t.Parallel()

		ch := broadcast.NewChannel[doubler]()
		for range 3 {
			ch.Open(doublerFunc(double))
		}

		var mu sync.Mutex
		i := 0
		res, err := broadcast.CallAsync(ch, func(d doubler) *async.Future[int] {
			mu.Lock()
			defer mu.Unlock()
			i++
			if i == 2 {
				return nil
			}
			return async.Completed(d.Double(i), nil)
		})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 6}, res.All())
	})
}

func TestDispatch_Listener(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		receivers []int
	)
	ch := broadcast.NewChannel[doubler](broadcast.WithListener(&broadcast.SelectiveListener{
		OnSendCb: func(_ string, n int) {
			mu.Lock()
			receivers = append(receivers, n)
			mu.Unlock()
		},
	}))
	ch.Open(doublerFunc(double))
	ch.Open(doublerFunc(double))

	ch.Each(func(doubler) {})
	broadcast.Call(ch, func(d doubler) int { return d.Double(1) })
	_, _ = ch.EachErr(func(doubler) error { return errors.New("stop") })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 2, 1}, receivers)
}

func TestDispatch_LogsFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	errFirst := errors.New("first failed")
	errThird := errors.New("third failed")
	var calls atomic.Int32

	ch := broadcast.NewChannel[validator](broadcast.WithLogger(log), broadcast.WithServiceName("validator"))
	ch.Open(stubValidator{err: errFirst, calls: &calls})
	ch.Open(stubValidator{score: 1, calls: &calls})
	ch.Open(stubValidator{err: errThird, calls: &calls})

	_, err := broadcast.CallAsync(ch, func(v validator) *async.Future[int] {
		return v.ScoreAsync(context.Background(), "x")
	})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "broadcast dispatch failed")
	assert.Contains(t, out, "action=call_async")
	assert.Contains(t, out, `errors.0="first failed"`)
	assert.Contains(t, out, `errors.1="third failed"`)
	assert.Contains(t, out, "elapsed=")
}
