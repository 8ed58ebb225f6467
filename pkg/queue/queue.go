// Package queue provides the shared work queue between the order producer
// and the kitchen workers, with completion tracking for drain detection.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jzx17/kitchenqueue/pkg/order"
	"github.com/jzx17/kitchenqueue/pkg/types"
)

// Item is either an order or a termination signal
type Item struct {
	order     order.Order
	terminate bool
}

// OrderItem wraps an order for the queue
func OrderItem(o order.Order) Item {
	return Item{order: o}
}

// TerminateItem returns a termination signal. Each one stops exactly one worker.
func TerminateItem() Item {
	return Item{terminate: true}
}

// IsTerminate reports whether the item is a termination signal
func (i Item) IsTerminate() bool {
	return i.terminate
}

// Order returns the wrapped order, nil for termination signals
func (i Item) Order() order.Order {
	return i.order
}

func (i Item) valid() bool {
	return i.terminate != (i.order != nil)
}

// Option configures a WorkQueue
type Option func(*WorkQueue)

// WithCapacity bounds the number of queued orders. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(q *WorkQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithClock sets the clock used for Get timeouts
func WithClock(clock types.Clock) Option {
	return func(q *WorkQueue) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// WorkQueue is a FIFO of orders and termination signals. Every operation is
// atomic under the queue's own mutex, which is never held across a wait.
//
// pending counts orders that were put but not yet acknowledged. Termination
// signals are tracked separately and never count as pending work.
type WorkQueue struct {
	mu    sync.Mutex
	items []Item

	capacity int
	clock    types.Clock

	pending        int
	unackedOrders  int
	unackedSignals int
	waiters        int

	// notEmpty and notFull are closed and replaced to broadcast state changes.
	// drained is closed exactly while pending == 0.
	notEmpty chan struct{}
	notFull  chan struct{}
	drained  chan struct{}
}

// New creates an empty queue
func New(opts ...Option) *WorkQueue {
	q := &WorkQueue{
		clock:    types.NewRealClock(),
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
		drained:  make(chan struct{}),
	}
	close(q.drained)

	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Put enqueues an item. An unbounded queue never blocks; a bounded queue
// blocks while full until space frees up or ctx is done. Termination signals
// bypass the capacity limit and are refused with ErrPendingWork while any
// order is still pending.
func (q *WorkQueue) Put(ctx context.Context, item Item) error {
	if !item.valid() {
		return fmt.Errorf("put: %w", types.ErrInvalidOrder)
	}
	if item.terminate {
		return q.PutTerminate(ctx, 1)
	}

	q.mu.Lock()
	for q.capacity > 0 && len(q.items) >= q.capacity {
		wait := q.notFull
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}

		q.mu.Lock()
	}

	q.items = append(q.items, item)
	if q.pending == 0 {
		q.drained = make(chan struct{})
	}
	q.pending++
	broadcast(&q.notEmpty)
	q.mu.Unlock()

	return nil
}

// PutTerminate enqueues n termination signals in one step, but only if no
// order is pending at that moment. Otherwise it returns ErrPendingWork and
// enqueues nothing.
func (q *WorkQueue) PutTerminate(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending > 0 {
		return fmt.Errorf("%d orders outstanding: %w", q.pending, types.ErrPendingWork)
	}
	for i := 0; i < n; i++ {
		q.items = append(q.items, TerminateItem())
	}
	if n > 0 {
		broadcast(&q.notEmpty)
	}
	return nil
}

// Get removes the head item. It blocks until an item is available, the
// timeout elapses (ErrEmpty) or ctx is done. A non-positive timeout makes Get
// return ErrEmpty immediately when the queue is empty.
func (q *WorkQueue) Get(ctx context.Context, timeout time.Duration) (Item, error) {
	var timer types.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return Item{}, err
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.pop()
			q.mu.Unlock()
			return item, nil
		}
		if timeout <= 0 {
			q.mu.Unlock()
			return Item{}, types.ErrEmpty
		}
		if timer == nil {
			timer = q.clock.NewTimer(timeout)
		}
		wait := q.notEmpty
		q.waiters++
		q.mu.Unlock()

		var err error
		select {
		case <-wait:
		case <-timer.C():
			err = types.ErrEmpty
		case <-ctx.Done():
			err = ctx.Err()
		}

		q.mu.Lock()
		q.waiters--
		q.mu.Unlock()

		if err != nil {
			return Item{}, err
		}
	}
}

// pop must be called with mu held
func (q *WorkQueue) pop() Item {
	item := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]

	if item.terminate {
		q.unackedSignals++
	} else {
		q.unackedOrders++
	}
	broadcast(&q.notFull)
	return item
}

// Acknowledge marks one retrieved item as fully processed. It must be called
// exactly once per item returned by Get. Acknowledging an item that was never
// retrieved returns ErrProtocolViolation and leaves the counters untouched.
func (q *WorkQueue) Acknowledge(item Item) error {
	if !item.valid() {
		return fmt.Errorf("acknowledge: %w", types.ErrInvalidOrder)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if item.terminate {
		if q.unackedSignals == 0 {
			return fmt.Errorf("acknowledge termination signal without retrieval: %w", types.ErrProtocolViolation)
		}
		q.unackedSignals--
		return nil
	}

	if q.unackedOrders == 0 || q.pending == 0 {
		return fmt.Errorf("acknowledge order %d without retrieval: %w", item.order.ID(), types.ErrProtocolViolation)
	}
	q.unackedOrders--
	q.pending--
	if q.pending == 0 {
		close(q.drained)
	}
	return nil
}

// WaitUntilDrained blocks until no order is pending or ctx is done. Queued
// termination signals do not keep the queue from being drained.
func (q *WorkQueue) WaitUntilDrained(ctx context.Context) error {
	q.mu.Lock()
	drained := q.drained
	q.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DiscardTerminate removes every queued termination signal and returns how
// many were dropped. Orders keep their relative order.
func (q *WorkQueue) DiscardTerminate() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, item := range q.items {
		if !item.terminate {
			kept = append(kept, item)
		}
	}
	dropped := len(q.items) - len(kept)
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = Item{}
	}
	q.items = kept
	if dropped > 0 {
		broadcast(&q.notFull)
	}
	return dropped
}

// Pending returns the number of orders put but not yet acknowledged
func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Len returns the number of queued items, termination signals included
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the order capacity, zero when unbounded
func (q *WorkQueue) Capacity() int {
	return q.capacity
}

func broadcast(ch *chan struct{}) {
	close(*ch)
	*ch = make(chan struct{})
}
