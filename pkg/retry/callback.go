package retry

import (
	"context"
)

// Callback is the unit of work retried by a Policy. DoWork may record
// results on rc with AddReturnValue; returning an error fails the attempt.
type Callback interface {
	DoWork(ctx context.Context, rc RetryContext) error
	WorkDescription() string
}

// CallbackFunc adapts a function to the Callback interface
type CallbackFunc func(ctx context.Context, rc RetryContext) error

// DoWork calls f
func (f CallbackFunc) DoWork(ctx context.Context, rc RetryContext) error {
	return f(ctx, rc)
}

// WorkDescription returns a generic label
func (f CallbackFunc) WorkDescription() string {
	return "callback"
}

// NewCallback creates a described callback from fn
func NewCallback(description string, fn func(ctx context.Context, rc RetryContext) error) Callback {
	return &describedCallback{description: description, fn: fn}
}

type describedCallback struct {
	description string
	fn          func(ctx context.Context, rc RetryContext) error
}

func (c *describedCallback) DoWork(ctx context.Context, rc RetryContext) error {
	return c.fn(ctx, rc)
}

func (c *describedCallback) WorkDescription() string {
	return c.description
}
