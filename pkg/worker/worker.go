package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jzx17/goretry/pkg/types"
)

// WorkerState defines the state of a pool worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker is a single pool goroutine pulling tasks from a shared queue
type Worker struct {
	id       int
	state    int32 // atomic state
	taskChan <-chan types.Task
	done     chan struct{}

	totalProcessed int64
	totalFailed    int64
	lastTaskTime   int64 // Unix nanosecond timestamp

	errorHandler types.ErrorHandler
	logger       *slog.Logger
	clock        types.Clock
}

func newWorker(id int, taskChan <-chan types.Task, clock types.Clock, handler types.ErrorHandler, logger *slog.Logger) *Worker {
	return &Worker{
		id:           id,
		state:        int32(WorkerStateIdle),
		taskChan:     taskChan,
		done:         make(chan struct{}),
		errorHandler: handler,
		logger:       logger.With("pool_worker", id),
		clock:        clock,
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// run processes tasks until ctx is done or the queue is closed
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer atomic.StoreInt32(&w.state, int32(WorkerStateStopped))

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-w.taskChan:
			if !ok {
				return
			}
			w.processTask(ctx, task)
		}
	}
}

// processTask processes a single task
func (w *Worker) processTask(ctx context.Context, task types.Task) {
	atomic.StoreInt32(&w.state, int32(WorkerStateWorking))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateIdle))

	startTime := w.clock.Now()
	atomic.StoreInt64(&w.lastTaskTime, startTime.UnixNano())

	err := w.executeTask(ctx, task)

	if err == nil {
		atomic.AddInt64(&w.totalProcessed, 1)
		return
	}

	atomic.AddInt64(&w.totalFailed, 1)
	w.logger.Warn("Task failed", "task_id", task.ID(), "duration", w.clock.Since(startTime), "error", err)
	if w.errorHandler != nil {
		if handledErr := w.errorHandler(err); handledErr != nil {
			w.logger.Error("Task error handler failed", "task_id", task.ID(), "error", handledErr)
		}
	}
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(ctx context.Context, task types.Task) (err error) {
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

			err = types.NewWorkerError("worker", cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", w.id).
				WithContext("task_id", task.ID())
		}
	}()

	return task.Execute(ctx)
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		LastTaskTime:   time.Unix(0, atomic.LoadInt64(&w.lastTaskTime)),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	LastTaskTime   time.Time
}

// IsActive checks if Worker is active
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateWorking
}
