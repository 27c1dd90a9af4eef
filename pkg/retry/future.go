package retry

import (
	"sync/atomic"

	"github.com/jzx17/goretry/pkg/types"
)

// FutureRetryContext is a handle to a RetryContext that is produced later by
// a background Worker. Every forwarding method returns a *types.StateError
// until the outcome has been installed; IsReady and Done are always safe.
//
// The outcome is installed at most once. A handle whose worker captured an
// error (see Worker.Err) never becomes ready.
type FutureRetryContext struct {
	delegate atomic.Pointer[delegateRef]
	ready    chan struct{}
}

// delegateRef boxes the interface value for atomic publication
type delegateRef struct {
	ctx RetryContext
}

// NewFutureRetryContext creates a handle with no outcome installed
func NewFutureRetryContext() *FutureRetryContext {
	return &FutureRetryContext{
		ready: make(chan struct{}),
	}
}

// setDelegate publishes ctx. It fails with types.ErrAlreadyReady on every
// call after the first and leaves the installed outcome untouched.
func (f *FutureRetryContext) setDelegate(ctx RetryContext) error {
	if ctx == nil {
		return types.ErrInvalidInput
	}
	if !f.delegate.CompareAndSwap(nil, &delegateRef{ctx: ctx}) {
		return types.ErrAlreadyReady
	}
	close(f.ready)
	return nil
}

// IsReady reports whether the outcome has been installed
func (f *FutureRetryContext) IsReady() bool {
	return f.delegate.Load() != nil
}

// Done returns a channel that is closed once the outcome is installed
func (f *FutureRetryContext) Done() <-chan struct{} {
	return f.ready
}

// Outcome returns the installed RetryContext
func (f *FutureRetryContext) Outcome() (RetryContext, error) {
	return f.checkState("Outcome")
}

func (f *FutureRetryContext) checkState(op string) (RetryContext, error) {
	ref := f.delegate.Load()
	if ref == nil {
		return nil, types.NewStateError(op)
	}
	return ref.ctx, nil
}

func (f *FutureRetryContext) AddReturnValue(value any) error {
	ctx, err := f.checkState("AddReturnValue")
	if err != nil {
		return err
	}
	ctx.AddReturnValue(value)
	return nil
}

func (f *FutureRetryContext) FirstReturnValue() (any, error) {
	ctx, err := f.checkState("FirstReturnValue")
	if err != nil {
		return nil, err
	}
	return ctx.FirstReturnValue(), nil
}

func (f *FutureRetryContext) ReturnValues() ([]any, error) {
	ctx, err := f.checkState("ReturnValues")
	if err != nil {
		return nil, err
	}
	return ctx.ReturnValues(), nil
}

func (f *FutureRetryContext) MetaInfo() (map[string]any, error) {
	ctx, err := f.checkState("MetaInfo")
	if err != nil {
		return nil, err
	}
	return ctx.MetaInfo(), nil
}

func (f *FutureRetryContext) Description() (string, error) {
	ctx, err := f.checkState("Description")
	if err != nil {
		return "", err
	}
	return ctx.Description(), nil
}

func (f *FutureRetryContext) SetOk() error {
	ctx, err := f.checkState("SetOk")
	if err != nil {
		return err
	}
	ctx.SetOk()
	return nil
}

func (f *FutureRetryContext) SetFailed(cause error) error {
	ctx, err := f.checkState("SetFailed")
	if err != nil {
		return err
	}
	ctx.SetFailed(cause)
	return nil
}

func (f *FutureRetryContext) IsOk() (bool, error) {
	ctx, err := f.checkState("IsOk")
	if err != nil {
		return false, err
	}
	return ctx.IsOk(), nil
}

// LastFailure returns the failure recorded on the outcome. The second result
// is non-nil only when the handle is not ready.
func (f *FutureRetryContext) LastFailure() (error, error) {
	ctx, err := f.checkState("LastFailure")
	if err != nil {
		return nil, err
	}
	return ctx.LastFailure(), nil
}

func (f *FutureRetryContext) Status() (Status, error) {
	ctx, err := f.checkState("Status")
	if err != nil {
		return StatusUnset, err
	}
	return ctx.Status(), nil
}
