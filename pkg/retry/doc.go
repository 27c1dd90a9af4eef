// Package retry provides retry policies and an asynchronous front that runs
// them on a worker pool.
//
// Key Features:
//
// 1. Retry outcomes:
//   - RetryContext: return values, metadata and a tri-state ok/failed status
//   - DefaultRetryContext: the standard, concurrency-safe implementation
//   - FutureRetryContext: a handle that becomes ready once a worker
//     installs the outcome
//
// 2. Retry policies:
//   - PolicyTemplate: the standard Policy driving an AttemptPolicy
//   - NoRetryPolicy, SimplePolicy, BackoffPolicy
//   - RetryCondition to stop on permanent errors
//
// 3. Backoff algorithms:
//   - FixedBackoff, ExponentialBackoff, LinearBackoff
//   - FullJitter, EqualJitter
//
// 4. Asynchronous execution:
//   - AsyncTemplate submits a Worker to any types.Executor
//   - start gates hold a group of workers until released together
//   - Worker exposes Err and Done for faults that never reach the handle
//
// Basic usage example:
//
//	policy := retry.NewSimpleTemplate(3, 100*time.Millisecond)
//	rc, err := policy.Execute(ctx, retry.NewCallback("dial", func(ctx context.Context, rc retry.RetryContext) error {
//		conn, err := net.Dial("tcp", addr)
//		if err != nil {
//			return err
//		}
//		rc.AddReturnValue(conn)
//		return nil
//	}), nil)
//
// Asynchronous usage example:
//
//	pool, _ := worker.NewFixedWorkerPool(nil)
//	_ = pool.Start(ctx)
//
//	async := retry.NewAsyncTemplate(policy)
//	startGate := gate.NewLatch(1)
//	handle, err := async.ExecuteAsyncGated(ctx, callback, pool, startGate)
//	// the work has not started yet
//	startGate.CountDown()
//
//	<-handle.Done()
//	ok, _ := handle.IsOk()
package retry
