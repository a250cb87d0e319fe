// Package prioq provides an unbounded priority queue with channel-like
// blocking reads.
//
// Items are read in ascending order of the supplied less function. Any number
// of goroutines may push and pop concurrently; Pop blocks until an item is
// available, the context is done, or the queue is closed.
package prioq

import (
	"container/heap"
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close and by Pop once a closed queue
// has been drained.
var ErrClosed = errors.New("prioq: queue closed")

// Queue is an unbounded priority-ordered queue.
type Queue[T any] struct {
	mu     sync.Mutex
	items  itemHeap[T]
	closed bool

	// ready carries at most one wakeup. A reader that pops while more items
	// remain passes the wakeup on to the next reader.
	ready chan struct{}
	done  chan struct{}
}

// New creates an empty queue ordered by less.
func New[T any](less func(a, b T) bool) *Queue[T] {
	return &Queue[T]{
		items: itemHeap[T]{less: less},
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push adds v to the queue.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	heap.Push(&q.items, v)
	q.mu.Unlock()
	q.wake()
	return nil
}

// PushAll adds all values under a single lock acquisition.
func (q *Queue[T]) PushAll(vs []T) error {
	if len(vs) == 0 {
		return nil
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	for _, v := range vs {
		heap.Push(&q.items, v)
	}
	q.mu.Unlock()
	q.wake()
	return nil
}

// TryPop removes and returns the smallest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopN removes up to n items in ascending order without blocking.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > q.items.Len() {
		n = q.items.Len()
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, _ := q.popLocked()
		out = append(out, v)
	}
	return out
}

// Pop removes and returns the smallest item, blocking until one is
// available.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		v, ok := q.popLocked()
		closed := q.closed
		q.mu.Unlock()
		if ok {
			return v, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close stops accepting items and wakes all blocked readers. Items already
// queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Clear drops all queued items and returns how many were dropped.
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.items.Len()
	q.items.data = q.items.data[:0]
	return n
}

func (q *Queue[T]) popLocked() (T, bool) {
	if q.items.Len() == 0 {
		var zero T
		return zero, false
	}
	v := heap.Pop(&q.items).(T)
	if q.items.Len() > 0 {
		q.wake()
	}
	return v, true
}

func (q *Queue[T]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

type itemHeap[T any] struct {
	data []T
	less func(a, b T) bool
}

func (h itemHeap[T]) Len() int           { return len(h.data) }
func (h itemHeap[T]) Less(i, j int) bool { return h.less(h.data[i], h.data[j]) }
func (h itemHeap[T]) Swap(i, j int)      { h.data[i], h.data[j] = h.data[j], h.data[i] }

func (h *itemHeap[T]) Push(x any) { h.data = append(h.data, x.(T)) }

func (h *itemHeap[T]) Pop() any {
	old := h.data
	n := len(old)
	v := old[n-1]
	var zero T
	old[n-1] = zero
	h.data = old[:n-1]
	return v
}
