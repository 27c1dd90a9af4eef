package retry

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/goretry/internal/testutils"
	"github.com/jzx17/goretry/pkg/gate"
	"github.com/jzx17/goretry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerState_String(t *testing.T) {
	tests := []struct {
		state    WorkerState
		expected string
		terminal bool
	}{
		{WorkerStateCreated, "created", false},
		{WorkerStateWaitingOnGate, "waiting_on_gate", false},
		{WorkerStateRunningPolicy, "running_policy", false},
		{WorkerStateDelegateInstalled, "delegate_installed", true},
		{WorkerStateErrorCaptured, "error_captured", true},
		{WorkerStateAborted, "aborted", true},
		{WorkerState(99), "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
}

func TestNewWorker(t *testing.T) {
	w := NewWorker(succeedingPolicy("x"), noopCallback(), inlineExecutor{})

	assert.True(t, strings.HasPrefix(w.ID(), "retry-"))
	assert.Equal(t, 0, w.Priority())
	assert.Equal(t, WorkerStateCreated, w.State())
	assert.NotNil(t, w.Handle())
	assert.False(t, w.Handle().IsReady())
	assert.NoError(t, w.Err())

	other := NewWorker(succeedingPolicy("x"), noopCallback(), inlineExecutor{})
	assert.NotEqual(t, w.ID(), other.ID())
}

func TestWorker_InstallsOutcome(t *testing.T) {
	w := NewWorker(succeedingPolicy("result"), noopCallback(), inlineExecutor{})

	require.NoError(t, w.Execute(context.Background()))

	assert.Equal(t, WorkerStateDelegateInstalled, w.State())
	assert.NoError(t, w.Err())
	require.True(t, w.Handle().IsReady())

	ok, err := w.Handle().IsOk()
	require.NoError(t, err)
	assert.True(t, ok)

	first, err := w.Handle().FirstReturnValue()
	require.NoError(t, err)
	assert.Equal(t, "result", first)

	select {
	case <-w.Done():
	default:
		t.Fatal("Done not closed after the run")
	}
}

func TestWorker_StateSettledWhenHandleReady(t *testing.T) {
	for i := 0; i < 50; i++ {
		w := NewWorker(slowPolicy(time.Millisecond), noopCallback(), inlineExecutor{})
		go func() { _ = w.Execute(context.Background()) }()

		select {
		case <-w.Handle().Done():
		case <-time.After(time.Second):
			t.Fatal("handle never became ready")
		}

		require.Equal(t, WorkerStateDelegateInstalled, w.State())
		require.NoError(t, w.Err())
		require.Positive(t, w.Duration())
	}
}

func TestWorker_PassesExecutorToPolicy(t *testing.T) {
	exec := inlineExecutor{}
	var seen types.Executor

	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		seen = e
		rc := NewDefaultRetryContext(cb.WorkDescription(), nil)
		rc.SetOk()
		return rc, nil
	})

	w := NewWorker(policy, noopCallback(), exec)
	require.NoError(t, w.Execute(context.Background()))
	assert.Equal(t, exec, seen)
}

func TestWorker_PolicyErrorIsCaptured(t *testing.T) {
	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		return nil, errors.New("boom")
	})
	recorder, logger := testutils.NewLogRecorder()

	w := NewWorker(policy, noopCallback(), inlineExecutor{}, WithWorkerLogger(logger))

	assert.NotPanics(t, func() {
		assert.NoError(t, w.Execute(context.Background()))
	})

	require.Error(t, w.Err())
	assert.Equal(t, "boom", w.Err().Error())
	assert.Equal(t, WorkerStateErrorCaptured, w.State())
	assert.True(t, recorder.Contains("failed to run policy"))

	// the handle stays not ready for good
	assert.Never(t, func() bool {
		return w.Handle().IsReady()
	}, 50*time.Millisecond, 5*time.Millisecond)

	_, err := w.Handle().IsOk()
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestWorker_PolicyPanicIsCaptured(t *testing.T) {
	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		panic("kaboom")
	})

	w := NewWorker(policy, noopCallback(), inlineExecutor{})
	assert.NotPanics(t, func() {
		assert.NoError(t, w.Execute(context.Background()))
	})

	var workerErr *types.WorkerError
	require.ErrorAs(t, w.Err(), &workerErr)
	assert.Contains(t, workerErr.Error(), "panic: kaboom")
	assert.Equal(t, w.ID(), workerErr.Context["worker_id"])
	assert.NotEmpty(t, workerErr.Context["stack_trace"])
	assert.False(t, w.Handle().IsReady())
}

func TestWorker_NilOutcomeIsCaptured(t *testing.T) {
	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		return nil, nil
	})

	w := NewWorker(policy, noopCallback(), inlineExecutor{})
	require.NoError(t, w.Execute(context.Background()))

	assert.ErrorIs(t, w.Err(), types.ErrNilOutcome)
	assert.Equal(t, WorkerStateErrorCaptured, w.State())
	assert.False(t, w.Handle().IsReady())
}

func TestWorker_NilPolicy(t *testing.T) {
	w := NewWorker(nil, noopCallback(), inlineExecutor{})
	require.NoError(t, w.Execute(context.Background()))
	assert.ErrorIs(t, w.Err(), types.ErrInvalidInput)
}

func TestWorker_WaitsForStartGate(t *testing.T) {
	startGate := gate.NewLatch(1)

	var invokedAt atomic.Int64
	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		invokedAt.Store(time.Now().UnixNano())
		rc := NewDefaultRetryContext(cb.WorkDescription(), nil)
		rc.SetOk()
		return rc, nil
	})

	w := NewWorker(policy, noopCallback(), inlineExecutor{}, WithStartGate(startGate))
	go func() { _ = w.Execute(context.Background()) }()

	assert.Eventually(t, func() bool {
		return w.State() == WorkerStateWaitingOnGate
	}, time.Second, 5*time.Millisecond)

	// the policy must not run while the gate is closed
	assert.Never(t, func() bool { return invokedAt.Load() != 0 }, 50*time.Millisecond, 5*time.Millisecond)

	releasedAt := time.Now().UnixNano()
	startGate.CountDown()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not finish after the gate opened")
	}

	assert.GreaterOrEqual(t, invokedAt.Load(), releasedAt)
	assert.True(t, w.Handle().IsReady())
}

func TestWorker_CancelledWhileWaitingOnGate(t *testing.T) {
	var invoked atomic.Bool
	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		invoked.Store(true)
		return NewDefaultRetryContext("never", nil), nil
	})
	recorder, logger := testutils.NewLogRecorder()

	w := NewWorker(policy, noopCallback(), inlineExecutor{},
		WithStartGate(gate.NewLatch(1)), // never released
		WithWorkerLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- errors.New("worker panicked")
			}
		}()
		result <- w.Execute(ctx)
	}()

	assert.Eventually(t, func() bool {
		return w.State() == WorkerStateWaitingOnGate
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not return after cancellation")
	}

	assert.Equal(t, WorkerStateAborted, w.State())
	assert.False(t, invoked.Load(), "policy must not run")
	assert.False(t, w.Handle().IsReady(), "no outcome may be installed")
	assert.NoError(t, w.Err(), "no error may be recorded")
	assert.True(t, recorder.Contains("cancelled while waiting on start gate"))

	select {
	case <-w.Done():
	default:
		t.Fatal("Done not closed after abort")
	}
}

func TestWorker_RunsOnce(t *testing.T) {
	var runs atomic.Int32
	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		runs.Add(1)
		rc := NewDefaultRetryContext(cb.WorkDescription(), nil)
		rc.SetOk()
		return rc, nil
	})

	w := NewWorker(policy, noopCallback(), inlineExecutor{})
	require.NoError(t, w.Execute(context.Background()))
	require.NoError(t, w.Execute(context.Background()))

	assert.Equal(t, int32(1), runs.Load())
	assert.NoError(t, w.Err(), "a second run must not trip the single install")
}

func TestWorker_DurationUsesClock(t *testing.T) {
	mock := testutils.NewMockClock(t)
	clock := testutils.NewClockWrapper(mock)

	policy := policyFunc(func(ctx context.Context, cb Callback, e types.Executor) (RetryContext, error) {
		mock.Advance(3 * time.Second)
		rc := NewDefaultRetryContext(cb.WorkDescription(), nil)
		rc.SetOk()
		return rc, nil
	})

	w := NewWorker(policy, noopCallback(), inlineExecutor{}, WithWorkerClock(clock))
	require.NoError(t, w.Execute(context.Background()))
	assert.Equal(t, 3*time.Second, w.Duration())
}
