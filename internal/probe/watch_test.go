package probe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jzx17/goretry/pkg/retry"
	"github.com/jzx17/goretry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(nil, Options{}, time.Second, nil)
	assert.Error(t, err)

	_, err = NewWatcher([]string{"127.0.0.1:1"}, Options{}, 0, nil)
	assert.Error(t, err)

	// newPool holds 4 workers and 16 queued tasks
	many := make([]string, 21)
	for i := range many {
		many[i] = "127.0.0.1:1"
	}
	_, err = NewWatcher(many, Options{Executor: newPool(t)}, time.Second, nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestWatcher_RunsRounds(t *testing.T) {
	addr := listen(t)

	var (
		mu     sync.Mutex
		rounds [][]Result
	)
	w, err := NewWatcher([]string{addr}, Options{
		Policy:      retry.NewNoRetryTemplate(),
		Executor:    newPool(t),
		DialTimeout: time.Second,
	}, 20*time.Millisecond, func(results []Result) {
		mu.Lock()
		defer mu.Unlock()
		rounds = append(rounds, results)
	})
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "second start must fail")

	assert.Eventually(t, func() bool {
		return w.Rounds() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(rounds), 2)
	for _, results := range rounds {
		require.Len(t, results, 1)
		assert.True(t, results[0].Ok)
	}
}
