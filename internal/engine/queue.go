package engine

import (
	"sync"

	"github.com/roach88/uniflux/internal/state"
)

// eventQueue is a thread-safe FIFO queue for enqueued events.
//
// The queue is unbounded so producers never block on a slow consumer;
// dispatch latency stays flat no matter how long processing takes.
//
// Multi-producer, single-consumer: any goroutine may Enqueue while the
// store's Run loop dequeues. A size-1 signal channel coalesces
// availability notifications and enables context-aware waiting in the
// Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []state.EnqueuedEvent
	closed bool
	signal chan struct{}
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]state.EnqueuedEvent, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(ev state.EnqueuedEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, ev)

	// Non-blocking signal; the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (zero, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (state.EnqueuedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return state.EnqueuedEvent{}, false
	}

	ev := q.events[0]

	// Nil out the slot so the dequeued event's pointers are collectable;
	// the underlying array otherwise retains them until reallocation.
	q.events[0] = state.EnqueuedEvent{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return ev, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
//
// The channel closes when the queue closes, waking all waiters.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued. Events already
// queued remain dequeuable so the consumer can drain.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
