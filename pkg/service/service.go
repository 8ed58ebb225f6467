// Package service provides OrderService, which owns the work queue and runs
// a fixed pool of kitchen workers until every submitted order is prepared.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/kitchenqueue/internal/logger"
	"github.com/jzx17/kitchenqueue/pkg/order"
	"github.com/jzx17/kitchenqueue/pkg/queue"
	"github.com/jzx17/kitchenqueue/pkg/types"
	"github.com/jzx17/kitchenqueue/pkg/worker"
)

// Config defines configuration for the order service
type Config struct {
	// Workers is the number of workers started per run
	Workers int

	// PollTimeout bounds each blocking queue read inside a worker
	PollTimeout time.Duration

	// QueueCapacity bounds the queue; zero means unbounded
	QueueCapacity int

	// Output receives every log line (optional, defaults to stdout)
	Output io.Writer

	// LogLevel is the minimum level written to Output
	LogLevel logger.Level

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler is called for every order that fails to prepare
	ErrorHandler types.ErrorHandler
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:     2,
		PollTimeout: worker.DefaultPollTimeout,
		LogLevel:    logger.LevelInfo,
		Clock:       types.NewRealClock(),
	}
}

// Stats is a snapshot of the service counters
type Stats struct {
	Workers   int
	Submitted int64
	Processed int64
	Failed    int64
	Pending   int
	Runs      int64
	Running   bool
}

// OrderService accepts orders and processes them with a worker pool
type OrderService struct {
	config *Config
	queue  *queue.WorkQueue
	out    *logger.Logger

	// workers is only non-empty during a run
	mu      sync.Mutex
	workers []*worker.Worker
	lastRun []worker.WorkerStats

	running   int32
	submitted int64
	processed int64
	failed    int64
	runs      int64
}

// New creates an order service. A nil config uses DefaultConfig.
func New(config *Config) (*OrderService, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if config.Workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", config.Workers)
	}
	if config.QueueCapacity < 0 {
		return nil, fmt.Errorf("queue capacity must not be negative, got %d", config.QueueCapacity)
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = worker.DefaultPollTimeout
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	return &OrderService{
		config: config,
		queue: queue.New(
			queue.WithCapacity(config.QueueCapacity),
			queue.WithClock(config.Clock),
		),
		out: logger.New(config.Output, config.LogLevel),
	}, nil
}

// Submit enqueues an order. It is safe to call from any goroutine, before or
// during a run. With a bounded queue it blocks while the queue is full.
func (s *OrderService) Submit(ctx context.Context, o order.Order) error {
	if o == nil {
		return fmt.Errorf("submit: %w", types.ErrInvalidOrder)
	}
	if err := s.queue.Put(ctx, queue.OrderItem(o)); err != nil {
		return fmt.Errorf("submit %s: %w", order.Describe(o), err)
	}
	atomic.AddInt64(&s.submitted, 1)
	return nil
}

// RunUntilDrained starts the worker pool, waits until every submitted order
// has been acknowledged, then stops the pool with one termination signal per
// worker and waits for every worker to exit. Orders that fail to prepare are
// logged and do not affect the result.
//
// The worker set is empty again when RunUntilDrained returns, so the service
// can be reused for another batch. If ctx is done first, the workers are
// stopped and joined and ctx.Err() is returned; unprocessed orders stay
// queued for the next run.
func (s *OrderService) RunUntilDrained(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return types.ErrAlreadyRunning
	}
	defer atomic.StoreInt32(&s.running, 0)

	workers := s.startWorkers(ctx)

	err := s.terminateWhenDrained(ctx, len(workers))
	if err != nil {
		for _, w := range workers {
			w.Stop()
		}
	}

	// the workers run on ctx, so a cancelled run still joins promptly
	for _, w := range workers {
		<-w.Done()
	}
	s.queue.DiscardTerminate()

	if err != nil {
		s.out.Warn("", "run interrupted with %d orders pending: %v", s.queue.Pending(), err)
	} else {
		s.out.Info("", "all orders processed")
	}

	s.finishRun(workers)
	return err
}

func (s *OrderService) startWorkers(ctx context.Context) []*worker.Worker {
	workers := make([]*worker.Worker, s.config.Workers)
	for i := range workers {
		workers[i] = worker.New(
			fmt.Sprintf("COOK %d", i+1),
			s.queue,
			s.out,
			worker.WithPollTimeout(s.config.PollTimeout),
			worker.WithClock(s.config.Clock),
			worker.WithErrorHandler(s.config.ErrorHandler),
		)
	}

	s.mu.Lock()
	s.workers = workers
	s.mu.Unlock()

	for _, w := range workers {
		go w.Run(ctx)
	}
	return workers
}

// terminateWhenDrained sends the termination signals only once nothing is
// pending. An order submitted between the drain and the signals makes the
// queue refuse them, and the wait starts over.
func (s *OrderService) terminateWhenDrained(ctx context.Context, n int) error {
	for {
		if err := s.queue.WaitUntilDrained(ctx); err != nil {
			return err
		}

		err := s.queue.PutTerminate(ctx, n)
		if err == nil {
			return nil
		}
		if !errors.Is(err, types.ErrPendingWork) {
			return err
		}
	}
}

func (s *OrderService) finishRun(workers []*worker.Worker) {
	stats := make([]worker.WorkerStats, len(workers))
	for i, w := range workers {
		stats[i] = w.Stats()
		atomic.AddInt64(&s.processed, stats[i].TotalProcessed)
		atomic.AddInt64(&s.failed, stats[i].TotalFailed)
	}
	atomic.AddInt64(&s.runs, 1)

	s.mu.Lock()
	s.workers = nil
	s.lastRun = stats
	s.mu.Unlock()
}

// Size returns the number of workers started per run
func (s *OrderService) Size() int {
	return s.config.Workers
}

// ActiveWorkers returns the size of the current worker set, zero between runs
func (s *OrderService) ActiveWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// IsRunning reports whether a run is in progress
func (s *OrderService) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// QueueLength returns the number of queued items
func (s *OrderService) QueueLength() int {
	return s.queue.Len()
}

// LastRun returns per-worker statistics of the most recent run
func (s *OrderService) LastRun() []worker.WorkerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]worker.WorkerStats, len(s.lastRun))
	copy(stats, s.lastRun)
	return stats
}

// Stats returns cumulative service statistics
func (s *OrderService) Stats() Stats {
	return Stats{
		Workers:   s.config.Workers,
		Submitted: atomic.LoadInt64(&s.submitted),
		Processed: atomic.LoadInt64(&s.processed),
		Failed:    atomic.LoadInt64(&s.failed),
		Pending:   s.queue.Pending(),
		Runs:      atomic.LoadInt64(&s.runs),
		Running:   s.IsRunning(),
	}
}
