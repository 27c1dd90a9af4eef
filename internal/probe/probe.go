// Package probe checks TCP reachability of a set of addresses, each as a
// gated asynchronous retry released together with the others.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jzx17/goretry/pkg/gate"
	"github.com/jzx17/goretry/pkg/retry"
	"github.com/jzx17/goretry/pkg/types"
)

// DefaultDialTimeout bounds a single dial attempt
const DefaultDialTimeout = 2 * time.Second

// Result is the outcome of probing one address
type Result struct {
	Address  string
	Ok       bool
	Remote   string
	Attempts int
	Err      error
	State    retry.WorkerState
	Duration time.Duration
}

// Options configures Run
type Options struct {
	Policy      retry.Policy
	Executor    types.Executor
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// DialCallback returns a callback that opens and closes a TCP connection to
// address. The remote address is recorded as the return value.
func DialCallback(address string, timeout time.Duration) retry.Callback {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	return retry.NewCallback("dial "+address, func(ctx context.Context, rc retry.RetryContext) error {
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return err
		}
		defer conn.Close()

		rc.AddReturnValue(conn.RemoteAddr().String())
		return nil
	})
}

// Run submits one gated worker per address, releases them together and waits
// for every worker to finish or for ctx to be done. Results are returned in
// address order.
//
// Gated workers hold their pool slot until the gate opens, so a bounded
// WorkerPool must fit every address in its workers plus its queue.
func Run(ctx context.Context, addresses []string, opts Options) ([]Result, error) {
	if opts.Policy == nil || opts.Executor == nil {
		return nil, types.ErrInvalidInput
	}
	if err := checkCapacity(len(addresses), opts.Executor); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	async := retry.NewAsyncTemplate(opts.Policy, retry.WithLogger(logger))
	startGate := gate.NewLatch(1)
	defer startGate.Release()

	results := make([]Result, len(addresses))
	workers := make([]*retry.Worker, len(addresses))
	for i, address := range addresses {
		results[i].Address = address

		w, err := async.Submit(ctx, DialCallback(address, opts.DialTimeout), opts.Executor, startGate)
		if err != nil {
			results[i].Err = fmt.Errorf("submit: %w", err)
			continue
		}
		workers[i] = w
	}

	logger.Info("Releasing probes", "count", len(addresses))
	startGate.CountDown()

	for i, w := range workers {
		if w == nil {
			continue
		}

		select {
		case <-w.Done():
		case <-ctx.Done():
			return results, ctx.Err()
		}

		results[i] = collect(results[i], w)
	}

	return results, nil
}

// checkCapacity rejects more addresses than a bounded pool can hold before
// the gate opens
func checkCapacity(addresses int, executor types.Executor) error {
	pool, ok := executor.(types.WorkerPool)
	if !ok {
		return nil
	}

	stats := pool.Stats()
	if capacity := stats.PoolSize + stats.QueueCapacity; addresses > capacity {
		return fmt.Errorf("%d addresses exceed worker pool capacity of %d: %w",
			addresses, capacity, types.ErrInvalidInput)
	}
	return nil
}

func collect(result Result, w *retry.Worker) Result {
	result.State = w.State()
	result.Duration = w.Duration()

	if err := w.Err(); err != nil {
		result.Err = err
		return result
	}

	outcome, err := w.Handle().Outcome()
	if err != nil {
		// aborted before the gate opened
		result.Err = err
		return result
	}

	result.Ok = outcome.IsOk()
	result.Err = outcome.LastFailure()
	if attempts, ok := outcome.MetaInfo()[retry.MetaAttempts].(int); ok {
		result.Attempts = attempts
	}
	if remote, ok := outcome.FirstReturnValue().(string); ok {
		result.Remote = remote
	}
	return result
}

// Failed counts the results that did not succeed
func Failed(results []Result) int {
	failed := 0
	for _, r := range results {
		if !r.Ok {
			failed++
		}
	}
	return failed
}
