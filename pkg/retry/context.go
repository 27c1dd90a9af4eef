package retry

import (
	"sync"

	"github.com/jzx17/goretry/pkg/types"
)

// Status is the terminal state of a retry sequence
type Status int32

const (
	// StatusUnset means neither SetOk nor SetFailed has been called
	StatusUnset Status = iota
	// StatusOk means the sequence succeeded
	StatusOk
	// StatusFailed means the sequence failed
	StatusFailed
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusUnset:
		return "unset"
	case StatusOk:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryContext carries the outcome of a retry sequence: its terminal state,
// the last failure, the values returned by attempts and free-form metadata.
type RetryContext interface {
	// AddReturnValue appends a value produced by an attempt
	AddReturnValue(value any)

	// FirstReturnValue returns the primary result, or nil if nothing was added
	FirstReturnValue() any

	// ReturnValues returns every value added so far, in order
	ReturnValues() []any

	// MetaInfo returns the metadata map. The map is live, not a copy.
	MetaInfo() map[string]any

	// Description returns the human-readable label of the work
	Description() string

	// SetOk marks the sequence as successful
	SetOk()

	// SetFailed marks the sequence as failed with cause
	SetFailed(cause error)

	// IsOk reports whether the sequence succeeded
	IsOk() bool

	// LastFailure returns the cause recorded by SetFailed
	LastFailure() error

	// Status returns the tri-state terminal status
	Status() Status
}

// DefaultRetryContext is the standard RetryContext. The first call to SetOk
// or SetFailed fixes the terminal state; later calls are ignored.
type DefaultRetryContext struct {
	description  string
	status       Status
	lastFailure  error
	returnValues []any
	metaInfo     map[string]any
	mu           sync.RWMutex
}

var _ RetryContext = (*DefaultRetryContext)(nil)

// NewDefaultRetryContext creates a retry context. metaInfo is copied.
func NewDefaultRetryContext(description string, metaInfo map[string]any) *DefaultRetryContext {
	meta := make(map[string]any, len(metaInfo))
	for k, v := range metaInfo {
		meta[k] = v
	}

	return &DefaultRetryContext{
		description: description,
		metaInfo:    meta,
	}
}

func (c *DefaultRetryContext) AddReturnValue(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.returnValues = append(c.returnValues, value)
}

func (c *DefaultRetryContext) FirstReturnValue() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.returnValues) == 0 {
		return nil
	}
	return c.returnValues[0]
}

// ReturnValues returns a snapshot of the values added so far
func (c *DefaultRetryContext) ReturnValues() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values := make([]any, len(c.returnValues))
	copy(values, c.returnValues)
	return values
}

func (c *DefaultRetryContext) MetaInfo() map[string]any {
	return c.metaInfo
}

func (c *DefaultRetryContext) Description() string {
	return c.description
}

func (c *DefaultRetryContext) SetOk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusUnset {
		return
	}
	c.status = StatusOk
	c.lastFailure = nil
}

// SetFailed records cause as the last failure. A nil cause is recorded as
// types.ErrUnknownFailure so that a failed context always has a cause.
func (c *DefaultRetryContext) SetFailed(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusUnset {
		return
	}
	if cause == nil {
		cause = types.ErrUnknownFailure
	}
	c.status = StatusFailed
	c.lastFailure = cause
}

// IsOk reports whether SetOk was called. It returns false while the status
// is still unset; use Status to tell the two apart.
func (c *DefaultRetryContext) IsOk() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status == StatusOk
}

func (c *DefaultRetryContext) LastFailure() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFailure
}

func (c *DefaultRetryContext) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
