package retry

import (
	"context"
	"log/slog"

	"github.com/jzx17/goretry/pkg/gate"
	"github.com/jzx17/goretry/pkg/types"
)

// AsyncTemplate runs a Policy on an Executor and hands back a
// FutureRetryContext straight away. It adds no retry logic of its own.
type AsyncTemplate struct {
	policy Policy
	logger *slog.Logger
	clock  types.Clock
}

// AsyncOption is a configuration option for AsyncTemplate
type AsyncOption func(*AsyncTemplate)

// WithLogger sets the logger passed to every worker
func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *AsyncTemplate) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAsyncClock sets the clock passed to every worker
func WithAsyncClock(clock types.Clock) AsyncOption {
	return func(a *AsyncTemplate) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAsyncTemplate creates an asynchronous front for policy
func NewAsyncTemplate(policy Policy, opts ...AsyncOption) *AsyncTemplate {
	a := &AsyncTemplate{
		policy: policy,
		logger: discardLogger(),
		clock:  types.NewRealClock(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Policy returns the wrapped policy
func (a *AsyncTemplate) Policy() Policy {
	return a.policy
}

// ExecuteAsync submits callback to executor and returns its handle without
// waiting for the work to start.
func (a *AsyncTemplate) ExecuteAsync(ctx context.Context, callback Callback, executor types.Executor) (*FutureRetryContext, error) {
	return a.ExecuteAsyncGated(ctx, callback, executor, nil)
}

// ExecuteAsyncGated is ExecuteAsync with a start gate: the policy does not run
// until startGate opens. A nil gate means no wait.
func (a *AsyncTemplate) ExecuteAsyncGated(ctx context.Context, callback Callback, executor types.Executor, startGate *gate.Latch) (*FutureRetryContext, error) {
	w, err := a.Submit(ctx, callback, executor, startGate)
	if err != nil {
		return nil, err
	}
	return w.Handle(), nil
}

// Submit wires and submits a worker and returns it. The worker gives access
// to errors raised by the policy itself, which never reach the handle.
//
// Cancelling ctx interrupts the gate wait and is visible to the policy.
func (a *AsyncTemplate) Submit(ctx context.Context, callback Callback, executor types.Executor, startGate *gate.Latch) (*Worker, error) {
	if callback == nil || executor == nil || a.policy == nil {
		return nil, types.ErrInvalidInput
	}

	w := NewWorker(a.policy, callback, executor,
		WithStartGate(startGate),
		WithWorkerLogger(a.logger),
		WithWorkerClock(a.clock))

	if err := executor.Submit(&boundTask{worker: w, ctx: ctx}); err != nil {
		a.logger.Warn("Failed to submit retry worker",
			"worker_id", w.ID(), "work", callback.WorkDescription(), "error", err)
		return nil, err
	}

	a.logger.Debug("Submitted retry worker",
		"worker_id", w.ID(), "work", callback.WorkDescription(), "gated", startGate != nil)
	return w, nil
}

// boundTask runs a worker under the submitter's context as well as the one
// supplied by the executor; whichever ends first cancels the run.
type boundTask struct {
	worker *Worker
	ctx    context.Context
}

func (t *boundTask) Execute(poolCtx context.Context) error {
	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(poolCtx, cancel)
	defer stop()

	return t.worker.Execute(ctx)
}

func (t *boundTask) ID() string {
	return t.worker.ID()
}

func (t *boundTask) Priority() int {
	return t.worker.Priority()
}

// ExecuteSync runs policy on the calling goroutine. It exists for symmetry
// with AsyncTemplate; it is the same as calling policy.Execute.
func ExecuteSync(ctx context.Context, policy Policy, callback Callback, executor types.Executor) (RetryContext, error) {
	if policy == nil {
		return nil, types.ErrInvalidInput
	}
	return policy.Execute(ctx, callback, executor)
}
