package daemon

import (
	"context"
	"sync"
)

// eventQueue is an unbounded multi-producer single-consumer FIFO.
// Sends never block; the consumer waits on ready.
type eventQueue[T any] struct {
	mu     sync.Mutex
	items  []Event[T]
	ready  chan struct{}
	closed bool
	onSend func(EventKind)
}

func newEventQueue[T any]() *eventQueue[T] {
	return &eventQueue[T]{ready: make(chan struct{}, 1)}
}

func (q *eventQueue[T]) push(ev Event[T]) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, ev)
	onSend := q.onSend
	q.mu.Unlock()

	if onSend != nil {
		onSend(ev.Kind)
	}
	q.wake()
	return nil
}

func (q *eventQueue[T]) tryPop() (Event[T], bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event[T]{}, false, q.closed
	}
	ev := q.items[0]
	q.items[0] = Event[T]{}
	q.items = q.items[1:]
	return ev, true, false
}

func (q *eventQueue[T]) pop(ctx context.Context) (Event[T], error) {
	for {
		ev, ok, closed := q.tryPop()
		if ok {
			return ev, nil
		}
		if closed {
			return Event[T]{}, ErrQueueClosed
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return Event[T]{}, ctx.Err()
		}
	}
}

func (q *eventQueue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *eventQueue[T]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Sender is the producing end of the event queue. Copies share the queue and
// may be used from any goroutine.
type Sender[T any] struct {
	q *eventQueue[T]
}

// Send enqueues ev without blocking. It fails only after the queue is closed.
func (s Sender[T]) Send(ev Event[T]) error {
	return s.q.push(ev)
}

// Receiver is the consuming end of the event queue. Only one goroutine may receive.
type Receiver[T any] struct {
	q *eventQueue[T]
}

// Recv blocks until an event is available, the queue is closed and drained
// (ErrQueueClosed), or ctx is done.
func (r Receiver[T]) Recv(ctx context.Context) (Event[T], error) {
	return r.q.pop(ctx)
}

// TryRecv returns the next event if one is queued
func (r Receiver[T]) TryRecv() (Event[T], bool) {
	ev, ok, _ := r.q.tryPop()
	return ev, ok
}

// NewEventChannel returns a connected sender and receiver. The sender may be
// copied freely; the receiver must have a single consumer.
func NewEventChannel[T any]() (Sender[T], Receiver[T]) {
	q := newEventQueue[T]()
	return Sender[T]{q: q}, Receiver[T]{q: q}
}
