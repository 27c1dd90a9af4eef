package retry

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jzx17/goretry/pkg/gate"
	"github.com/jzx17/goretry/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateCreated represents a worker that has not run yet
	WorkerStateCreated WorkerState = iota
	// WorkerStateWaitingOnGate represents a worker blocked on its start gate
	WorkerStateWaitingOnGate
	// WorkerStateRunningPolicy represents a worker executing its policy
	WorkerStateRunningPolicy
	// WorkerStateDelegateInstalled represents a worker that published its outcome
	WorkerStateDelegateInstalled
	// WorkerStateErrorCaptured represents a worker whose policy failed to run
	WorkerStateErrorCaptured
	// WorkerStateAborted represents a worker cancelled while waiting on its gate
	WorkerStateAborted
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateCreated:
		return "created"
	case WorkerStateWaitingOnGate:
		return "waiting_on_gate"
	case WorkerStateRunningPolicy:
		return "running_policy"
	case WorkerStateDelegateInstalled:
		return "delegate_installed"
	case WorkerStateErrorCaptured:
		return "error_captured"
	case WorkerStateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the worker has finished
func (ws WorkerState) IsTerminal() bool {
	return ws >= WorkerStateDelegateInstalled
}

// Worker runs a Policy against a Callback in the background and publishes the
// outcome into its FutureRetryContext. It implements types.Task so that it can
// be submitted to any types.Executor, and never returns an error from Execute.
//
// If the policy itself fails (returns an error or panics) the error is kept
// on the worker and the handle is left not ready. Callers that only hold the
// handle cannot observe this; use Err and Done.
type Worker struct {
	id       string
	policy   Policy
	callback Callback
	executor types.Executor
	gate     *gate.Latch
	handle   *FutureRetryContext
	logger   *slog.Logger
	clock    types.Clock

	state    int32 // atomic WorkerState
	err      error
	duration time.Duration
	once     sync.Once
	done     chan struct{}
	mu       sync.RWMutex
}

// WorkerOption is a configuration option for Worker
type WorkerOption func(*Worker)

// WithStartGate holds the worker until startGate opens
func WithStartGate(startGate *gate.Latch) WorkerOption {
	return func(w *Worker) {
		if startGate != nil {
			w.gate = startGate
		}
	}
}

// WithWorkerLogger sets the worker logger
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWorkerClock sets the clock used to time the run
func WithWorkerClock(clock types.Clock) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// NewWorker creates a worker and its handle. executor is handed to the policy;
// the worker does not schedule itself on it. Without WithStartGate the worker
// starts as soon as it is executed.
func NewWorker(policy Policy, callback Callback, executor types.Executor, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:       "retry-" + uuid.NewString(),
		policy:   policy,
		callback: callback,
		executor: executor,
		gate:     gate.Opened(),
		handle:   NewFutureRetryContext(),
		logger:   discardLogger(),
		clock:    types.NewRealClock(),
		state:    int32(WorkerStateCreated),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.With("worker_id", w.id)
	return w
}

// ID returns the worker ID
func (w *Worker) ID() string {
	return w.id
}

// Priority returns the task priority
func (w *Worker) Priority() int {
	return 0
}

// Handle returns the handle that receives the outcome
func (w *Worker) Handle() *FutureRetryContext {
	return w.handle
}

// State returns the current worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// Err returns the error captured when the policy failed to run, or nil
func (w *Worker) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Duration returns how long the policy ran
func (w *Worker) Duration() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.duration
}

// Done returns a channel closed when the worker reaches a terminal state,
// including abort
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Execute waits for the start gate, runs the policy and publishes the
// outcome. Only the first call does any work. It always returns nil.
func (w *Worker) Execute(ctx context.Context) error {
	w.once.Do(func() {
		defer close(w.done)
		w.run(ctx)
	})
	return nil
}

func (w *Worker) run(ctx context.Context) {
	w.setState(WorkerStateWaitingOnGate)
	if err := w.gate.Wait(ctx); err != nil {
		w.logger.Debug("Retry worker cancelled while waiting on start gate", "error", err)
		w.setState(WorkerStateAborted)
		return
	}

	w.setState(WorkerStateRunningPolicy)
	start := w.clock.Now()
	outcome, err := w.executePolicy(ctx)
	elapsed := w.clock.Since(start)

	if err == nil && outcome == nil {
		err = types.NewWorkerError("retry-worker", types.ErrNilOutcome).
			WithContext("worker_id", w.id)
	}

	w.mu.Lock()
	w.duration = elapsed
	w.err = err
	w.mu.Unlock()

	if err == nil {
		// state settles before the handle becomes ready
		w.setState(WorkerStateDelegateInstalled)
		if err = w.handle.setDelegate(outcome); err != nil {
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
		}
	}

	if err != nil {
		w.logger.Error("Retry worker failed to run policy",
			"work", w.describe(), "error", err)
		w.setState(WorkerStateErrorCaptured)
		return
	}

	w.logger.Debug("Retry worker installed outcome",
		"work", w.describe(), "ok", outcome.IsOk(), "duration", elapsed)
}

// executePolicy runs the policy with panic recovery support
func (w *Worker) executePolicy(ctx context.Context) (outcome RetryContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = v
			default:
				cause = fmt.Errorf("panic: %v", v)
			}

			outcome = nil
			err = types.NewWorkerError("retry-worker", cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", w.id)
		}
	}()

	if w.policy == nil {
		return nil, types.ErrInvalidInput
	}
	return w.policy.Execute(ctx, w.callback, w.executor)
}

func (w *Worker) describe() string {
	if w.callback == nil {
		return ""
	}
	return w.callback.WorkDescription()
}

func (w *Worker) setState(state WorkerState) {
	atomic.StoreInt32(&w.state, int32(state))
}
