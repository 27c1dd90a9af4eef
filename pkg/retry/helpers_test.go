package retry

import (
	"context"
	"time"

	"github.com/jzx17/goretry/pkg/types"
)

// policyFunc adapts a function to Policy
type policyFunc func(ctx context.Context, cb Callback, exec types.Executor) (RetryContext, error)

func (f policyFunc) Execute(ctx context.Context, cb Callback, exec types.Executor) (RetryContext, error) {
	return f(ctx, cb, exec)
}

// succeedingPolicy returns an ok outcome carrying value
func succeedingPolicy(value any) Policy {
	return policyFunc(func(ctx context.Context, cb Callback, exec types.Executor) (RetryContext, error) {
		rc := NewDefaultRetryContext(cb.WorkDescription(), nil)
		rc.AddReturnValue(value)
		rc.SetOk()
		return rc, nil
	})
}

// slowPolicy sleeps for delay (or until ctx is done) before succeeding
func slowPolicy(delay time.Duration) Policy {
	return policyFunc(func(ctx context.Context, cb Callback, exec types.Executor) (RetryContext, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
		rc := NewDefaultRetryContext(cb.WorkDescription(), nil)
		rc.SetOk()
		return rc, nil
	})
}

func noopCallback() Callback {
	return NewCallback("noop", func(ctx context.Context, rc RetryContext) error {
		return nil
	})
}

// inlineExecutor runs tasks on the submitting goroutine
type inlineExecutor struct{}

func (inlineExecutor) Submit(task types.Task) error {
	return task.Execute(context.Background())
}

// rejectingExecutor refuses every task
type rejectingExecutor struct {
	err error
}

func (e rejectingExecutor) Submit(types.Task) error {
	return e.err
}
