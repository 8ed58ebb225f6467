package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jzx17/kitchenqueue/pkg/order"
	"github.com/jzx17/kitchenqueue/pkg/queue"
	"github.com/jzx17/kitchenqueue/pkg/types"
)

// DefaultPollTimeout is how long a worker blocks in Get before re-checking
// whether it is still active
const DefaultPollTimeout = time.Second

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateProcessing represents a worker preparing an order
	WorkerStateProcessing
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateProcessing:
		return "processing"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Queue is the consumer side of the work queue
type Queue interface {
	Get(ctx context.Context, timeout time.Duration) (queue.Item, error)
	Acknowledge(item queue.Item) error
}

// Output is the shared, line-serialized output stream
type Output interface {
	Info(source string, format string, args ...any)
	Error(source string, format string, args ...any)
}

type nopOutput struct{}

func (nopOutput) Info(string, string, ...any)  {}
func (nopOutput) Error(string, string, ...any) {}

// Option configures a Worker
type Option func(*Worker)

// WithPollTimeout sets how long each Get may block
func WithPollTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollTimeout = d
		}
	}
}

// WithClock sets the clock used for timing statistics
func WithClock(clock types.Clock) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithErrorHandler sets the handler called for every failed order
func WithErrorHandler(handler types.ErrorHandler) Option {
	return func(w *Worker) {
		w.errorHandler = handler
	}
}

// Worker pulls items from a shared queue on its own goroutine until it
// receives a termination signal, is stopped, or its context is done
type Worker struct {
	id    string
	queue Queue
	out   Output

	pollTimeout  time.Duration
	clock        types.Clock
	errorHandler types.ErrorHandler

	state   int32 // atomic WorkerState
	active  int32 // atomic bool
	started int32
	done    chan struct{}

	// statistics
	totalProcessed int64
	totalFailed    int64
	busyNanos      int64
	lastTaskTime   int64 // Unix nanosecond timestamp
}

// New creates a Worker bound to q. Lines are written to out; a nil out
// discards them.
func New(id string, q Queue, out Output, opts ...Option) *Worker {
	if out == nil {
		out = nopOutput{}
	}

	w := &Worker{
		id:          id,
		queue:       q,
		out:         out,
		pollTimeout: DefaultPollTimeout,
		clock:       types.NewRealClock(),
		state:       int32(WorkerStateIdle),
		active:      1,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the Worker ID
func (w *Worker) ID() string {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// IsActive reports whether the worker will start another iteration
func (w *Worker) IsActive() bool {
	return atomic.LoadInt32(&w.active) == 1
}

// Done is closed once Run has returned
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run is the worker loop. It returns when a termination signal is consumed,
// when Stop took effect, or when ctx is done. A second call returns
// immediately.
func (w *Worker) Run(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return
	}
	defer close(w.done)
	defer atomic.StoreInt32(&w.state, int32(WorkerStateStopped))

	for w.IsActive() {
		item, err := w.queue.Get(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, types.ErrEmpty) {
				continue
			}
			return
		}

		if item.IsTerminate() {
			atomic.StoreInt32(&w.active, 0)
			w.acknowledge(item)
			return
		}

		w.processOrder(ctx, item)
	}
}

// Stop asks the worker to leave its loop. It takes effect at the next poll
// boundary and never interrupts an order being prepared.
func (w *Worker) Stop() {
	atomic.StoreInt32(&w.active, 0)
}

// processOrder prepares a single order. The item is acknowledged on every
// path, including panics inside Prepare.
func (w *Worker) processOrder(ctx context.Context, item queue.Item) {
	atomic.StoreInt32(&w.state, int32(WorkerStateProcessing))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateIdle))
	defer w.acknowledge(item)

	o := item.Order()
	startTime := w.clock.Now()
	atomic.StoreInt64(&w.lastTaskTime, startTime.UnixNano())

	w.out.Info(w.id, "preparing %s", order.Describe(o))

	result, err := w.prepare(ctx, o)
	atomic.AddInt64(&w.busyNanos, int64(w.clock.Since(startTime)))

	if err != nil {
		atomic.AddInt64(&w.totalFailed, 1)
		w.out.Error(w.id, "error preparing %s: %v", order.Describe(o), err)
		w.handleError(err)
		return
	}

	atomic.AddInt64(&w.totalProcessed, 1)
	w.out.Info(w.id, "order %d ready: %s", o.ID(), result)
}

// prepare runs Prepare with panic recovery; every failure comes back as a
// *types.ProcessingError
func (w *Worker) prepare(ctx context.Context, o order.Order) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = fmt.Errorf("panic: %w", v)
			default:
				cause = fmt.Errorf("panic: %v", v)
			}

			result = ""
			err = types.NewProcessingError(w.id, o.ID(), o.Kind().String(), cause).
				WithContext("stack_trace", string(buf[:n]))
		}
	}()

	result, err = o.Prepare(ctx)
	if err != nil {
		return "", types.NewProcessingError(w.id, o.ID(), o.Kind().String(), err)
	}
	return result, nil
}

func (w *Worker) acknowledge(item queue.Item) {
	if err := w.queue.Acknowledge(item); err != nil {
		w.out.Error(w.id, "acknowledge failed: %v", err)
	}
}

func (w *Worker) handleError(err error) {
	if w.errorHandler != nil {
		_ = w.errorHandler(err)
	}
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	var last time.Time
	if ns := atomic.LoadInt64(&w.lastTaskTime); ns != 0 {
		last = time.Unix(0, ns)
	}
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		BusyTime:       time.Duration(atomic.LoadInt64(&w.busyNanos)),
		LastTaskTime:   last,
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             string
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	BusyTime       time.Duration
	LastTaskTime   time.Time
}

// Total returns the number of orders the worker took, failed or not
func (ws WorkerStats) Total() int64 {
	return ws.TotalProcessed + ws.TotalFailed
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	total := ws.Total()
	if total == 0 {
		return 0
	}
	return float64(ws.TotalProcessed) / float64(total)
}

// GetErrorRate gets the error rate
func (ws WorkerStats) GetErrorRate() float64 {
	total := ws.Total()
	if total == 0 {
		return 0
	}
	return float64(ws.TotalFailed) / float64(total)
}
