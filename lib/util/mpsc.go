package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// cell is a single element in the queue
type cell[T any] struct {
	value T
	next  atomic.Pointer[cell[T]]
}

// MPSC is an unbounded multi-producer single-consumer queue.
//
// Producers append to a linked list of cells with atomic operations, a
// background goroutine moves the values to the channel returned by Recv.
// Push never blocks on the consumer. Values pushed by one goroutine are
// delivered in push order.
type MPSC[T any] struct {
	head  atomic.Pointer[cell[T]]
	tail  atomic.Pointer[cell[T]]
	out   chan T
	size  atomic.Int64
	close atomic.Bool
	done  chan struct{}

	mu   sync.Mutex
	cond *sync.Cond
}

// NewMPSC creates a new queue and starts its forwarding goroutine.
func NewMPSC[T any]() *MPSC[T] {
	sentinel := &cell[T]{}

	q := &MPSC[T]{
		out:  make(chan T),
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.forward()

	return q
}

// Push appends a value to the queue.
// Returns false if the queue is closed.
func (q *MPSC[T]) Push(value T) bool {
	if q.close.Load() {
		return false
	}

	c := &cell[T]{value: value}
	q.size.Add(1)
	var backoff uint8

	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, c) {
				// may fail when another producer already moved the tail
				q.tail.CompareAndSwap(tail, c)

				q.mu.Lock()
				q.cond.Signal()
				q.mu.Unlock()
				return true
			}
		} else {
			q.tail.CompareAndSwap(tail, next)
		}

		// spin briefly under contention, then yield
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// forward moves values from the linked list to the output channel until the
// queue is closed and drained.
func (q *MPSC[T]) forward() {
	defer close(q.done)
	defer close(q.out)

	var zero T
	for {
		head := q.head.Load()
		next := head.next.Load()

		if next != nil {
			value := next.value
			q.head.Store(next)
			q.size.Add(-1)
			q.out <- value
			next.value = zero
			continue
		}

		q.mu.Lock()
		for q.head.Load().next.Load() == nil && !q.close.Load() {
			q.cond.Wait()
		}
		drained := q.head.Load().next.Load() == nil
		q.mu.Unlock()

		if drained {
			return
		}
	}
}

// Recv returns the channel the queued values are delivered on. The channel
// is closed once the queue is closed and every value has been received.
func (q *MPSC[T]) Recv() <-chan T {
	return q.out
}

// Close prevents further pushes. Values already queued are still delivered.
func (q *MPSC[T]) Close() {
	q.mu.Lock()
	q.close.Store(true)
	q.cond.Signal()
	q.mu.Unlock()
}

// Done is closed once the forwarding goroutine has exited.
func (q *MPSC[T]) Done() <-chan struct{} {
	return q.done
}

// IsClosed returns true if the queue is closed.
func (q *MPSC[T]) IsClosed() bool {
	return q.close.Load()
}

// Len returns the number of queued values, not counting a value currently
// handed to the consumer.
func (q *MPSC[T]) Len() int {
	return int(q.size.Load())
}
