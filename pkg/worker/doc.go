/*
Package worker provides the kitchen worker: one goroutine that repeatedly
pulls orders from a shared work queue, prepares them and acknowledges them.

# Lifecycle

A Worker moves through Idle → Processing → Idle until it stops:

  - Get times out (types.ErrEmpty): the worker loops again. This is the point
    where a Stop request is noticed.
  - Termination signal: the worker acknowledges it and returns.
  - Order: the worker writes a "preparing" line, calls Prepare, writes a
    "ready" line and acknowledges the order.
  - Context done: the worker returns without taking further items.

# Error Handling

Errors returned by Prepare and panics raised inside it are wrapped in a
*types.ProcessingError, logged as one ERROR line and passed to the optional
error handler. The order is acknowledged regardless, so a failing order can
never keep the queue from draining.

# Usage

	q := queue.New()
	out := logger.New(os.Stdout, logger.LevelInfo)

	w := worker.New("COOK 1", q, out, worker.WithPollTimeout(time.Second))
	go w.Run(ctx)

	_ = q.Put(ctx, queue.OrderItem(order.NewBurger(1)))
	_ = q.WaitUntilDrained(ctx)
	_ = q.PutTerminate(ctx, 1)
	<-w.Done()

Stop is best-effort: it is only observed between polls and never interrupts
an order being prepared.
*/
package worker
