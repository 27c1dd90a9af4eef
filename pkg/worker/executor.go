package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jzx17/goretry/pkg/types"
)

// GoExecutor runs every submitted task on its own goroutine. It suits callers
// that do not need a bounded pool.
type GoExecutor struct {
	ctx     context.Context
	logger  *slog.Logger
	wg      sync.WaitGroup
	running int64

	// mu orders Submit's closed check and wg.Add against Close
	mu     sync.Mutex
	closed bool
}

var _ types.Executor = (*GoExecutor)(nil)

// NewGoExecutor creates an executor whose tasks receive ctx
func NewGoExecutor(ctx context.Context, logger *slog.Logger) *GoExecutor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GoExecutor{ctx: ctx, logger: logger}
}

// Submit starts task on a new goroutine
func (e *GoExecutor) Submit(task types.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil: %w", types.ErrInvalidInput)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return types.ErrPoolClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	atomic.AddInt64(&e.running, 1)
	go func() {
		defer e.wg.Done()
		defer atomic.AddInt64(&e.running, -1)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("Task panicked", "task_id", task.ID(), "panic", r)
			}
		}()

		if err := task.Execute(e.ctx); err != nil {
			e.logger.Warn("Task failed", "task_id", task.ID(), "error", err)
		}
	}()
	return nil
}

// Running returns the number of tasks currently executing
func (e *GoExecutor) Running() int {
	return int(atomic.LoadInt64(&e.running))
}

// Close rejects further submissions and waits for running tasks. Every
// task accepted by Submit has finished when Close returns.
func (e *GoExecutor) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}
