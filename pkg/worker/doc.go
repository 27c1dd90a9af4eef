/*
Package worker provides the execution pools that run retry workers.

# Overview

Two types.Executor implementations are provided:

  - FixedWorkerPool: a fixed number of goroutines pulling from a bounded
    queue, with submission timeouts, panic recovery and statistics.
  - GoExecutor: one goroutine per task, for callers without a pool.

Both return from Submit without waiting for the task, which is what the
asynchronous retry entry points require.

# Usage

	pool, err := worker.NewFixedWorkerPool(&worker.FixedWorkerPoolConfig{
		PoolSize:  4,
		QueueSize: 64,
	})
	if err != nil {
		return err
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}
	defer pool.Close()

	handle, err := retry.NewAsyncTemplate(policy).ExecuteAsync(ctx, callback, pool)

# Shutdown

Stop cancels the context handed to running tasks and waits for them. Tasks
still queued are run with the cancelled context so that gated retry workers
reach a terminal state instead of being dropped.

# Error Handling

A task that returns an error or panics is counted as failed and passed to
the configured ErrorHandler. Panics are converted to *types.WorkerError with
the stack trace in its context.
*/
package worker
