package kernel

import (
	"github.com/eapache/queue"

	"github.com/roach88/fakekernel/internal/expect"
)

// ExpectQueue is the FIFO of expected system calls.
//
// Only Push (append at the tail) and Pop (remove the head) mutate it. There
// is no look-ahead and no reordering: each expectation is consumed at most
// once, in the order it was pushed.
type ExpectQueue struct {
	q *queue.Queue
}

// NewExpectQueue creates an empty queue.
func NewExpectQueue() *ExpectQueue {
	return &ExpectQueue{q: queue.New()}
}

// Push appends e to the tail.
func (q *ExpectQueue) Push(e expect.Expectation) {
	q.q.Add(e)
}

// Pop removes and returns the head. Returns (nil, false) if the queue is
// exhausted.
func (q *ExpectQueue) Pop() (expect.Expectation, bool) {
	if q.q.Length() == 0 {
		return nil, false
	}
	return q.q.Remove().(expect.Expectation), true
}

// Peek returns the head without removing it.
func (q *ExpectQueue) Peek() (expect.Expectation, bool) {
	if q.q.Length() == 0 {
		return nil, false
	}
	return q.q.Peek().(expect.Expectation), true
}

// Len returns the number of unconsumed expectations.
func (q *ExpectQueue) Len() int {
	return q.q.Length()
}

// Items returns the unconsumed expectations, head first.
func (q *ExpectQueue) Items() []expect.Expectation {
	out := make([]expect.Expectation, q.q.Length())
	for i := range out {
		out[i] = q.q.Get(i).(expect.Expectation)
	}
	return out
}
