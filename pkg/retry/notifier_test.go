package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifiers(t *testing.T) {
	var order []string
	record := func(name string) Notifier {
		return NotifierFuncs{
			Success: func(ctx context.Context, rc RetryContext) { order = append(order, name+":ok") },
			Failure: func(ctx context.Context, rc RetryContext, err error) { order = append(order, name+":fail") },
		}
	}

	combined := Notifiers(record("a"), nil, record("b"))
	rc := NewDefaultRetryContext("work", nil)

	combined.OnFailure(context.Background(), rc, errors.New("x"))
	combined.OnSuccess(context.Background(), rc)

	assert.Equal(t, []string{"a:fail", "b:fail", "a:ok", "b:ok"}, order)
}

func TestNotifierFuncs_NilFields(t *testing.T) {
	assert.NotPanics(t, func() {
		n := NotifierFuncs{}
		n.OnSuccess(context.Background(), NewDefaultRetryContext("work", nil))
		n.OnFailure(context.Background(), NewDefaultRetryContext("work", nil), errors.New("x"))
	})
}

func TestNewLogNotifier_NilLogger(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NotPanics(t, func() {
		n.OnSuccess(context.Background(), NewDefaultRetryContext("work", nil))
	})
}
