// Package types defines core interfaces and types shared by the retry engine
package types

import (
	"context"
	"time"
)

// Task defines the task interface
type Task interface {
	// Execute executes the task
	Execute(ctx context.Context) error

	// ID returns the task ID (optional, for tracking)
	ID() string

	// Priority returns the task priority (optional, for sorting)
	Priority() int
}

// Executor accepts units of work for execution on another goroutine.
// Submit must return without waiting for the task to run.
type Executor interface {
	Submit(task Task) error
}

// WorkerPool defines the worker pool interface
type WorkerPool interface {
	Executor

	// SubmitWithTimeout submits a task to the worker pool with timeout
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// Start starts the worker pool
	Start(ctx context.Context) error

	// Stop stops the worker pool
	Stop() error

	// Close closes the worker pool and releases resources
	Close() error

	// Size returns the size of the worker pool
	Size() int

	// Stats returns worker pool statistics
	Stats() WorkerPoolStats
}

// WorkerPoolStats defines basic statistics for worker pools
type WorkerPoolStats struct {
	// PoolSize is the size of the pool
	PoolSize int

	// ActiveWorkers is the number of active worker goroutines
	ActiveWorkers int

	// QueueSize is the current number of tasks in the queue
	QueueSize int

	// QueueCapacity is the capacity of the queue
	QueueCapacity int

	// TotalProcessed is the number of tasks that completed without error
	TotalProcessed int64

	// TotalFailed is the number of tasks that returned an error or panicked
	TotalFailed int64
}

// ErrorHandler is invoked with errors returned by tasks
type ErrorHandler func(error) error
