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

func TestGoExecutor_Submit(t *testing.T) {
	exec := NewGoExecutor(context.Background(), nil)

	release := make(chan struct{})
	var ran int64
	for i := 0; i < 3; i++ {
		require.NoError(t, exec.Submit(NewBasicTask(func(ctx context.Context) error {
			<-release
			atomic.AddInt64(&ran, 1)
			return nil
		})))
	}

	// Submit returned while all three tasks are still blocked
	assert.Eventually(t, func() bool { return exec.Running() == 3 }, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, exec.Close())
	assert.Equal(t, int64(3), atomic.LoadInt64(&ran))
	assert.Equal(t, 0, exec.Running())
}

func TestGoExecutor_FailuresDoNotEscape(t *testing.T) {
	exec := NewGoExecutor(context.Background(), nil)

	require.NoError(t, exec.Submit(NewBasicTask(func(ctx context.Context) error {
		return errors.New("failed")
	})))
	require.NoError(t, exec.Submit(NewBasicTask(func(ctx context.Context) error {
		panic("boom")
	})))

	assert.NotPanics(t, func() { _ = exec.Close() })
}

func TestGoExecutor_Closed(t *testing.T) {
	exec := NewGoExecutor(context.Background(), nil)
	require.NoError(t, exec.Close())

	err := exec.Submit(NewBasicTask(func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, err, types.ErrPoolClosed)
	assert.ErrorIs(t, exec.Submit(nil), types.ErrInvalidInput)
}

func TestGoExecutor_CloseWaitsForAcceptedTasks(t *testing.T) {
	for i := 0; i < 100; i++ {
		exec := NewGoExecutor(context.Background(), nil)

		var accepted, finished int64
		var submitters sync.WaitGroup
		for s := 0; s < 4; s++ {
			submitters.Add(1)
			go func() {
				defer submitters.Done()
				for n := 0; n < 10; n++ {
					err := exec.Submit(NewBasicTask(func(ctx context.Context) error {
						atomic.AddInt64(&finished, 1)
						return nil
					}))
					if err == nil {
						atomic.AddInt64(&accepted, 1)
					}
				}
			}()
		}

		require.NoError(t, exec.Close())
		finishedAtClose := atomic.LoadInt64(&finished)
		submitters.Wait()

		// submissions after Close are rejected, so nothing runs late
		require.Equal(t, atomic.LoadInt64(&accepted), finishedAtClose)
		require.Equal(t, finishedAtClose, atomic.LoadInt64(&finished))
	}
}
