package broadcast

import "sync/atomic"

// slotArray is one published generation of the backing array. Readers load the
// current generation once and iterate it without locking; writers replace the
// generation only while holding the owning channel's lock.
type slotArray[S any] struct {
	items []atomic.Pointer[Link[S]]
}

// slotList is an index-addressed set of links with O(1) add and remove.
// All mutating methods must be called with the owning channel's lock held.
type slotList[S any] struct {
	arr    atomic.Pointer[slotArray[S]]
	count  atomic.Int64
	free   indexQueue
	minCap int
}

func newSlotList[S any](initial, minCap int) *slotList[S] {
	l := &slotList[S]{minCap: minCap}
	l.reset(initial)
	return l
}

// reset replaces the backing array with an empty one of the given capacity.
func (l *slotList[S]) reset(capacity int) {
	l.arr.Store(&slotArray[S]{items: make([]atomic.Pointer[Link[S]], capacity)})
	l.free.fill(0, capacity)
}

// add stores link in a free slot, growing the array when none is left.
func (l *slotList[S]) add(link *Link[S]) int {
	idx, ok := l.free.pop()
	if !ok {
		l.grow()
		idx, _ = l.free.pop()
	}

	l.arr.Load().items[idx].Store(link)
	link.index.Store(int64(idx))
	l.count.Add(1)
	return idx
}

// grow doubles the capacity. The new array is fully populated before it is
// published, so a concurrent reader sees either the old or the new generation.
func (l *slotList[S]) grow() {
	old := l.arr.Load()
	oldCap := len(old.items)
	newCap := max(oldCap*2, l.minCap, 1)

	next := &slotArray[S]{items: make([]atomic.Pointer[Link[S]], newCap)}
	for i := range old.items {
		next.items[i].Store(old.items[i].Load())
	}
	for i := oldCap; i < newCap; i++ {
		l.free.push(i)
	}
	l.arr.Store(next)
}

// remove clears the slot held by link. Returns false when link is already detached.
func (l *slotList[S]) remove(link *Link[S]) bool {
	idx := link.index.Load()
	if idx < 0 {
		return false
	}

	arr := l.arr.Load()
	if int(idx) >= len(arr.items) || arr.items[idx].Load() != link {
		return false
	}

	arr.items[idx].Store(nil)
	l.free.push(int(idx))
	link.index.Store(-1)
	l.count.Add(-1)
	return true
}

// snapshot returns the current generation and an advisory occupancy. The array
// may contain nil holes and links detached after the snapshot was taken; its
// length, not the count, bounds iteration.
func (l *slotList[S]) snapshot() (*slotArray[S], int) {
	return l.arr.Load(), int(l.count.Load())
}

func (l *slotList[S]) len() int {
	return int(l.count.Load())
}

func (l *slotList[S]) capacity() int {
	return len(l.arr.Load().items)
}

// tryTrim shrinks a sparsely occupied array. An empty list above the floor is
// reset to the floor. A list less than half full is reallocated to the smallest
// halving of its capacity that still exceeds occupancy, doubled once for headroom.
// Live links are packed to the front in their current order and re-indexed.
func (l *slotList[S]) tryTrim() (empty bool) {
	count := l.len()
	capacity := l.capacity()

	if capacity <= l.minCap {
		return count == 0
	}

	if count == 0 {
		l.reset(l.minCap)
		return true
	}

	if count >= capacity/2 {
		return false
	}

	newCap := capacity
	for newCap > count {
		newCap /= 2
	}
	newCap = max(newCap*2, l.minCap)
	if newCap >= capacity {
		return false
	}

	old := l.arr.Load()
	next := &slotArray[S]{items: make([]atomic.Pointer[Link[S]], newCap)}
	n := 0
	for i := range old.items {
		link := old.items[i].Load()
		if link == nil {
			continue
		}
		next.items[n].Store(link)
		link.index.Store(int64(n))
		n++
	}

	l.free.fill(n, newCap)
	l.arr.Store(next)
	return false
}

// indexQueue is a FIFO ring of free slot positions.
type indexQueue struct {
	buf  []int
	head int
	n    int
}

func (q *indexQueue) push(i int) {
	if q.n == len(q.buf) {
		next := make([]int, max(len(q.buf)*2, 4))
		for j := range q.n {
			next[j] = q.buf[(q.head+j)%len(q.buf)]
		}
		q.buf, q.head = next, 0
	}
	q.buf[(q.head+q.n)%len(q.buf)] = i
	q.n++
}

func (q *indexQueue) pop() (int, bool) {
	if q.n == 0 {
		return 0, false
	}
	i := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return i, true
}

// fill discards the queue and enqueues positions [from, to).
func (q *indexQueue) fill(from, to int) {
	size := max(to-from, 0)
	if cap(q.buf) < size || cap(q.buf) > 2*size+4 {
		q.buf = make([]int, size)
	}
	q.buf = q.buf[:cap(q.buf)]
	q.head, q.n = 0, 0
	for i := from; i < to; i++ {
		q.buf[q.n] = i
		q.n++
	}
}

func (q *indexQueue) len() int {
	return q.n
}
