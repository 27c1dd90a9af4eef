// Package types defines error types
package types

import (
	"errors"
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrNotReady indicates a deferred handle was used before its outcome was installed
	ErrNotReady = errors.New("handle is not ready")

	// ErrAlreadyReady indicates a second attempt to install an outcome into a handle
	ErrAlreadyReady = errors.New("handle is already ready")

	// ErrNilOutcome indicates a policy returned neither an outcome nor an error
	ErrNilOutcome = errors.New("policy returned a nil outcome")

	// ErrUnknownFailure is recorded when a failure is reported without a cause
	ErrUnknownFailure = errors.New("unknown failure")

	// ErrInvalidInput indicates invalid input
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrWorkerPoolFull indicates the worker pool is full
	ErrWorkerPoolFull = errors.New("worker pool is full")

	// ErrPoolNotStarted indicates a submission to a pool that is not running
	ErrPoolNotStarted = errors.New("worker pool is not started")

	// ErrPoolClosed indicates a submission to a closed pool
	ErrPoolClosed = errors.New("worker pool is closed")
)

// StateError reports an operation invoked on a deferred handle before the
// handle became ready. It matches ErrNotReady through errors.Is.
type StateError struct {
	// Op is the name of the rejected operation
	Op string
}

// Error implements the error interface
func (e *StateError) Error() string {
	return fmt.Sprintf("retry: %s invoked before the handle became ready", e.Op)
}

// Is reports whether target is ErrNotReady
func (e *StateError) Is(target error) bool {
	return target == ErrNotReady
}

// NewStateError creates a StateError for the named operation
func NewStateError(op string) *StateError {
	return &StateError{Op: op}
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	var stateErr *StateError
	return errors.As(err, &stateErr)
}

// WorkerError represents a fault raised while a worker was running a unit of work
type WorkerError struct {
	// Operation is the name of the operation where the error occurred
	Operation string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker error in operation %s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error
func (e *WorkerError) Unwrap() error {
	return e.Cause
}

// NewWorkerError creates a new worker error
func NewWorkerError(operation string, cause error) *WorkerError {
	return &WorkerError{
		Operation: operation,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *WorkerError) WithContext(key string, value interface{}) *WorkerError {
	e.Context[key] = value
	return e
}

// RetryableError represents a retryable error
type RetryableError struct {
	// Err is the underlying error
	Err error

	// Retryable indicates whether the error is retryable
	Retryable bool

	// RetryAfter is the suggested retry delay
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: false}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return false
}

// IsPermanent checks if an error was explicitly marked as not retryable
func IsPermanent(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return !retryableErr.Retryable
	}
	return false
}

// GetRetryDelay returns the suggested retry delay
func GetRetryDelay(err error) time.Duration {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.RetryAfter
	}
	return 0
}
