package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/goretry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFixedWorkerPool(t *testing.T) {
	tests := []struct {
		name        string
		config      *FixedWorkerPoolConfig
		expectError bool
	}{
		{
			name:        "nil config should use default",
			config:      nil,
			expectError: false,
		},
		{
			name: "valid config",
			config: &FixedWorkerPoolConfig{
				PoolSize:  5,
				QueueSize: 50,
			},
			expectError: false,
		},
		{
			name: "zero pool size should error",
			config: &FixedWorkerPoolConfig{
				PoolSize:  0,
				QueueSize: 50,
			},
			expectError: true,
		},
		{
			name: "zero queue size should error",
			config: &FixedWorkerPoolConfig{
				PoolSize:  5,
				QueueSize: 0,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewFixedWorkerPool(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, pool)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, pool)
			assert.False(t, pool.IsRunning())
		})
	}
}

func newStartedPool(t *testing.T, size, queue int) *FixedWorkerPool {
	t.Helper()
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:      size,
		QueueSize:     queue,
		SubmitTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestFixedWorkerPool_StartStop(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{PoolSize: 2, QueueSize: 4})
	require.NoError(t, err)

	require.NoError(t, pool.Start(context.Background()))
	assert.True(t, pool.IsRunning())
	assert.Error(t, pool.Start(context.Background()), "second start should fail")

	require.NoError(t, pool.Stop())
	assert.False(t, pool.IsRunning())
	assert.Error(t, pool.Stop(), "stopping a stopped pool should fail")

	// a stopped pool can be restarted
	require.NoError(t, pool.Start(context.Background()))
	assert.True(t, pool.IsRunning())
	require.NoError(t, pool.Close())
	assert.True(t, pool.IsClosed())
}

func TestFixedWorkerPool_SubmitStates(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{PoolSize: 1, QueueSize: 1})
	require.NoError(t, err)

	task := NewBasicTask(func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, pool.Submit(task), types.ErrPoolNotStarted)

	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Submit(nil), types.ErrInvalidInput)
	assert.NoError(t, pool.Submit(task))

	require.NoError(t, pool.Close())
	assert.ErrorIs(t, pool.Submit(task), types.ErrPoolClosed)
	assert.ErrorIs(t, pool.Start(context.Background()), types.ErrPoolClosed)
}

func TestFixedWorkerPool_TaskExecution(t *testing.T) {
	pool := newStartedPool(t, 4, 100)

	const taskCount = 50
	var executed int64
	var wg sync.WaitGroup

	for i := 0; i < taskCount; i++ {
		wg.Add(1)
		err := pool.Submit(NewBasicTask(func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt64(&executed, 1)
			return nil
		}))
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, int64(taskCount), atomic.LoadInt64(&executed))
	assert.Eventually(t, func() bool {
		return pool.Stats().TotalProcessed == taskCount
	}, time.Second, 10*time.Millisecond)
}

func TestFixedWorkerPool_TaskErrorsAndPanics(t *testing.T) {
	var handled []error
	var mu sync.Mutex

	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:  1,
		QueueSize: 10,
		ErrorHandler: func(err error) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, err)
			return nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Close()

	taskErr := errors.New("task failed")
	require.NoError(t, pool.Submit(NewBasicTask(func(ctx context.Context) error { return taskErr })))
	require.NoError(t, pool.Submit(NewBasicTaskWithID("panicky", func(ctx context.Context) error { panic("boom") })))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, handled[0], taskErr)

	var workerErr *types.WorkerError
	require.ErrorAs(t, handled[1], &workerErr)
	assert.Equal(t, "panicky", workerErr.Context["task_id"])
	assert.Contains(t, workerErr.Error(), "panic: boom")
	assert.Equal(t, int64(2), pool.Stats().TotalFailed)
}

func TestFixedWorkerPool_SubmitWithTimeout(t *testing.T) {
	pool := newStartedPool(t, 1, 1)

	release := make(chan struct{})
	defer close(release)
	blocking := func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}

	// occupy the single worker, then fill the queue
	require.NoError(t, pool.Submit(NewBasicTask(blocking)))
	assert.Eventually(t, func() bool {
		return pool.Stats().ActiveWorkers == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, pool.Submit(NewBasicTask(blocking)))

	assert.ErrorIs(t, pool.SubmitWithTimeout(NewBasicTask(blocking), 0), types.ErrWorkerPoolFull)
	assert.ErrorIs(t, pool.SubmitWithTimeout(NewBasicTask(blocking), 20*time.Millisecond), types.ErrTimeout)
}

func TestFixedWorkerPool_StopRunsQueuedTasksCancelled(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{PoolSize: 1, QueueSize: 4})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	require.NoError(t, pool.Submit(NewBasicTask(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})))
	<-started

	var sawCancelled atomic.Bool
	require.NoError(t, pool.Submit(NewBasicTask(func(ctx context.Context) error {
		sawCancelled.Store(ctx.Err() != nil)
		return nil
	})))

	require.NoError(t, pool.Stop())
	assert.True(t, sawCancelled.Load(), "queued task should run with a cancelled context")
	assert.Equal(t, 0, pool.Stats().QueueSize)
	assert.Equal(t, int64(2), pool.Stats().TotalProcessed)
}

func TestFixedWorkerPool_Stats(t *testing.T) {
	pool := newStartedPool(t, 3, 20)

	stats := pool.Stats()
	assert.Equal(t, 3, stats.PoolSize)
	assert.Equal(t, 20, stats.QueueCapacity)
	assert.Equal(t, 3, pool.Size())
	assert.Len(t, pool.GetWorkerStats(), 3)
}

func BenchmarkFixedWorkerPool_Submit(b *testing.B) {
	pool, _ := NewFixedWorkerPool(&FixedWorkerPoolConfig{PoolSize: 4, QueueSize: 1024})
	_ = pool.Start(context.Background())
	defer pool.Close()

	task := NewBasicTask(func(ctx context.Context) error { return nil })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.Submit(task)
	}
}
