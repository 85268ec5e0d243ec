package broadcast

import (
	"iter"
	"slices"
)

// Result is the ordered set of values returned by the subscribers of one send.
// Zero and one values are stored inline; a slice is allocated only for two or more.
type Result[R any] struct {
	single R
	values []R
	n      int
}

// ResultOf builds a Result from values, mainly for brokers and tests.
func ResultOf[R any](values ...R) Result[R] {
	switch len(values) {
	case 0:
		return Result[R]{}
	case 1:
		return Result[R]{single: values[0], n: 1}
	default:
		return Result[R]{values: values, n: len(values)}
	}
}

// Len returns the number of values.
func (r Result[R]) Len() int {
	return r.n
}

// Empty reports whether no subscriber produced a value.
func (r Result[R]) Empty() bool {
	return r.n == 0
}

// Single returns the value when exactly one subscriber answered.
func (r Result[R]) Single() (R, bool) {
	if r.n != 1 {
		var zero R
		return zero, false
	}
	return r.single, true
}

// First returns the value of the first subscriber in call order.
func (r Result[R]) First() (R, bool) {
	switch r.n {
	case 0:
		var zero R
		return zero, false
	case 1:
		return r.single, true
	default:
		return r.values[0], true
	}
}

// At returns the i-th value. It panics when i is out of range.
func (r Result[R]) At(i int) R {
	if i < 0 || i >= r.n {
		panic("broadcast: result index out of range")
	}
	if r.n == 1 {
		return r.single
	}
	return r.values[i]
}

// All returns the values in call order. The slice must not be modified.
func (r Result[R]) All() []R {
	switch r.n {
	case 0:
		return nil
	case 1:
		return []R{r.single}
	default:
		return r.values
	}
}

// Values iterates the values in call order.
func (r Result[R]) Values() iter.Seq[R] {
	return func(yield func(R) bool) {
		if r.n == 1 {
			yield(r.single)
			return
		}
		for _, v := range r.values {
			if !yield(v) {
				return
			}
		}
	}
}

// resultBuilder collects values, keeping the first one inline until a second arrives.
type resultBuilder[R any] struct {
	r    Result[R]
	hint int
}

func (b *resultBuilder[R]) add(v R) {
	switch b.r.n {
	case 0:
		b.r.single = v
	case 1:
		values := make([]R, 0, max(b.hint, 2))
		b.r.values = append(values, b.r.single, v)
		var zero R
		b.r.single = zero
	default:
		b.r.values = append(b.r.values, v)
	}
	b.r.n++
}

func (b *resultBuilder[R]) result() Result[R] {
	if b.r.n > 1 {
		b.r.values = slices.Clip(b.r.values)
	}
	return b.r
}
