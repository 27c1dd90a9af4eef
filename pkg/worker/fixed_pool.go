package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/goretry/pkg/types"
)

// pool states
const (
	poolStopped int32 = iota
	poolRunning
	poolClosed
)

// FixedWorkerPoolConfig defines configuration for fixed worker pool
type FixedWorkerPoolConfig struct {
	// PoolSize is the size of the worker pool
	PoolSize int

	// QueueSize is the task queue size
	QueueSize int

	// SubmitTimeout is the task submission timeout
	SubmitTimeout time.Duration

	// StopTimeout bounds the wait for workers in Stop
	StopTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler is the error handler
	ErrorHandler types.ErrorHandler

	// Logger receives task failures (optional, defaults to discarding)
	Logger *slog.Logger
}

// DefaultFixedWorkerPoolConfig returns default configuration
func DefaultFixedWorkerPoolConfig() *FixedWorkerPoolConfig {
	return &FixedWorkerPoolConfig{
		PoolSize:      10,
		QueueSize:     100,
		SubmitTimeout: 5 * time.Second,
		StopTimeout:   10 * time.Second,
		Clock:         types.NewRealClock(),
	}
}

// FixedWorkerPool implements a fixed-size worker pool. It satisfies
// types.Executor and is the usual home for retry workers.
type FixedWorkerPool struct {
	config   *FixedWorkerPoolConfig
	workers  []*Worker
	taskChan chan types.Task

	state     int32 // atomic pool state
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// retired accumulates stats of workers from previous runs
	retiredProcessed int64
	retiredFailed    int64

	mu sync.RWMutex
}

var _ types.WorkerPool = (*FixedWorkerPool)(nil)

// NewFixedWorkerPool creates a new fixed worker pool
func NewFixedWorkerPool(config *FixedWorkerPoolConfig) (*FixedWorkerPool, error) {
	if config == nil {
		config = DefaultFixedWorkerPoolConfig()
	}

	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", config.PoolSize)
	}
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", config.QueueSize)
	}

	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 10 * time.Second
	}

	return &FixedWorkerPool{
		config:   config,
		taskChan: make(chan types.Task, config.QueueSize),
	}, nil
}

// Start starts the worker pool
func (p *FixedWorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch atomic.LoadInt32(&p.state) {
	case poolRunning:
		return fmt.Errorf("worker pool is already running")
	case poolClosed:
		return types.ErrPoolClosed
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.workers = make([]*Worker, p.config.PoolSize)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p.taskChan, p.config.Clock, p.config.ErrorHandler, p.config.Logger)
		go p.workers[i].run(p.ctx)
	}

	atomic.StoreInt32(&p.state, poolRunning)
	return nil
}

// Submit submits a task to the worker pool
func (p *FixedWorkerPool) Submit(task types.Task) error {
	return p.SubmitWithTimeout(task, p.config.SubmitTimeout)
}

// SubmitWithTimeout submits a task to the worker pool with timeout
func (p *FixedWorkerPool) SubmitWithTimeout(task types.Task, timeout time.Duration) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil: %w", types.ErrInvalidInput)
	}

	// checked before locking so tasks submitting during Stop fail fast
	if err := p.checkState(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkState(); err != nil {
		return err
	}

	// if no timeout, try to send directly
	if timeout <= 0 {
		select {
		case p.taskChan <- task:
			return nil
		default:
			return types.ErrWorkerPoolFull
		}
	}

	timer := p.config.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.taskChan <- task:
		return nil
	case <-timer.C():
		return types.ErrTimeout
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *FixedWorkerPool) checkState() error {
	switch atomic.LoadInt32(&p.state) {
	case poolStopped:
		return types.ErrPoolNotStarted
	case poolClosed:
		return types.ErrPoolClosed
	}
	return nil
}

// Stop stops the worker pool. Tasks still queued are run with the cancelled
// context so that they can observe cancellation and finish.
func (p *FixedWorkerPool) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, poolRunning, poolStopped) {
		return fmt.Errorf("worker pool is not running")
	}

	// cancel before taking the lock so blocked submitters give up
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	timeout := p.config.Clock.NewTimer(p.config.StopTimeout)
	defer timeout.Stop()

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-timeout.C():
			return fmt.Errorf("timeout waiting for workers to stop")
		}
		stats := w.Stats()
		p.retiredProcessed += stats.TotalProcessed
		p.retiredFailed += stats.TotalFailed
	}

	p.drain()
	p.workers = nil
	return nil
}

// drain runs queued tasks with the cancelled pool context
func (p *FixedWorkerPool) drain() {
	drainer := newWorker(-1, p.taskChan, p.config.Clock, p.config.ErrorHandler, p.config.Logger)
	for {
		select {
		case task := <-p.taskChan:
			drainer.processTask(p.ctx, task)
		default:
			p.retiredProcessed += atomic.LoadInt64(&drainer.totalProcessed)
			p.retiredFailed += atomic.LoadInt64(&drainer.totalFailed)
			return
		}
	}
}

// Close stops the pool if needed and releases resources. A closed pool
// rejects every submission.
func (p *FixedWorkerPool) Close() error {
	var closeErr error

	p.closeOnce.Do(func() {
		if p.IsRunning() {
			if err := p.Stop(); err != nil {
				closeErr = err
			}
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		atomic.StoreInt32(&p.state, poolClosed)
	})

	return closeErr
}

// Size returns the worker pool size
func (p *FixedWorkerPool) Size() int {
	return p.config.PoolSize
}

// Stats gets basic worker pool statistics
func (p *FixedWorkerPool) Stats() types.WorkerPoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := types.WorkerPoolStats{
		PoolSize:       p.config.PoolSize,
		QueueSize:      len(p.taskChan),
		QueueCapacity:  p.config.QueueSize,
		TotalProcessed: p.retiredProcessed,
		TotalFailed:    p.retiredFailed,
	}

	for _, w := range p.workers {
		ws := w.Stats()
		if ws.IsActive() {
			stats.ActiveWorkers++
		}
		stats.TotalProcessed += ws.TotalProcessed
		stats.TotalFailed += ws.TotalFailed
	}

	return stats
}

// GetWorkerStats gets statistics of all Workers
func (p *FixedWorkerPool) GetWorkerStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}

// IsRunning checks if the worker pool is running
func (p *FixedWorkerPool) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == poolRunning
}

// IsClosed checks if the worker pool is closed
func (p *FixedWorkerPool) IsClosed() bool {
	return atomic.LoadInt32(&p.state) == poolClosed
}
