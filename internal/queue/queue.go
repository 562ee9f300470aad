// Package queue implements the lock-free MPMC task queue (C7): a
// singly-linked chain with a tail sentinel, blocking Pop, and explicit
// Interrupt.
//
// Grounded line-for-line on
// original_source/include/astrolib/concurrent.hpp's lf_queue<T>
// (push_front/pop_back, head-then-tail publish order on the empty edge,
// nap()/wake() for parking idle consumers), translated to Go generics
// with atomic.Pointer in place of std::atomic<T*>.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/leapus/mapindexer/internal/ierr"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is a multi-producer multi-consumer FIFO of owned values.
//
// Invariants (Q1-Q3 in spec §4.7):
//   - tail.next is the next item to pop (nil iff empty)
//   - head points at the most recently pushed node, or at the tail
//     sentinel when empty
//   - every node reachable from head is reachable from tail.next by
//     following next pointers, and the chain is acyclic
type Queue[T any] struct {
	tail node[T] // sentinel; tail.next is the next item to pop
	head atomic.Pointer[node[T]]

	mu        sync.Mutex
	cond      *sync.Cond
	interrupt atomic.Bool
}

// New constructs an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(&q.tail)
	return q
}

// Push appends v to the queue. Safe for concurrent use by any number of
// producers.
func (q *Queue[T]) Push(v T) {
	nl := &node[T]{value: v}

	for {
		h := q.head.Load()
		if !h.next.CompareAndSwap(nil, nl) {
			continue
		}

		// We are the thread that linked nl behind h; now publish head so
		// other pushers stop spinning here. If h was the tail sentinel,
		// the queue was empty and no pop could have raced us for
		// tail.next, since it was nil until this line.
		prev := q.head.Swap(nl)
		if prev == &q.tail {
			q.tail.next.Store(nl)
			q.wake()
		}
		return
	}
}

// Pop removes and returns the head of the queue, blocking if it is
// empty. Returns ierr.ErrInterrupted if the queue is empty and Interrupt
// has been called (or is called while this Pop is parked).
func (q *Queue[T]) Pop() (T, error) {
	for {
		t := q.tail.next.Load()
		if t == nil {
			var err error
			t, err = q.park()
			if err != nil {
				var zero T
				return zero, err
			}
		}

		n := t.next.Load()
		if q.tail.next.CompareAndSwap(t, n) {
			return t.value, nil
		}
	}
}

// park blocks the calling goroutine until tail.next becomes non-nil or
// Interrupt is called. Unlike the source's nap(), which assigns into its
// own wait predicate (a side effect condition variables should never
// have, since the predicate can be re-evaluated on any spurious wakeup),
// this re-derives the candidate node fresh after each wakeup, per spec §9.
func (q *Queue[T]) park() (*node[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if n := q.tail.next.Load(); n != nil {
			return n, nil
		}
		if q.interrupt.Load() {
			return nil, ierr.ErrInterrupted
		}
		q.cond.Wait()
	}
}

func (q *Queue[T]) wake() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Interrupt unblocks every consumer parked in Pop and causes subsequent
// Pops on an empty queue to return ierr.ErrInterrupted. In-flight pops
// that still find work proceed normally.
func (q *Queue[T]) Interrupt() {
	q.interrupt.Store(true)
	q.wake()
}

// Interrupted reports whether Interrupt has been called.
func (q *Queue[T]) Interrupted() bool { return q.interrupt.Load() }
