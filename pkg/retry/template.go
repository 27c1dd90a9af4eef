package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jzx17/goretry/pkg/types"
)

// Metadata keys written by PolicyTemplate
const (
	// MetaAttempts holds the number of attempts made so far (int)
	MetaAttempts = "attempts"
	// MetaDuration holds the total time spent in the sequence (time.Duration)
	MetaDuration = "duration"
)

// PolicyTemplate is the standard Policy. It runs the callback on the calling
// goroutine, consulting a fresh AttemptPolicy after every failure.
type PolicyTemplate struct {
	factory   func() AttemptPolicy
	notifier  Notifier
	condition RetryCondition
	clock     types.Clock
	metaInfo  map[string]any
	logger    *slog.Logger
}

var _ Policy = (*PolicyTemplate)(nil)

// TemplateOption is a configuration option for PolicyTemplate
type TemplateOption func(*PolicyTemplate)

// WithNotifier sets the notifier told about every attempt
func WithNotifier(notifier Notifier) TemplateOption {
	return func(t *PolicyTemplate) {
		t.notifier = notifier
	}
}

// WithRetryCondition sets the retry condition. Errors it rejects end the
// sequence without consulting the AttemptPolicy.
func WithRetryCondition(condition RetryCondition) TemplateOption {
	return func(t *PolicyTemplate) {
		if condition != nil {
			t.condition = condition
		}
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) TemplateOption {
	return func(t *PolicyTemplate) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithMetaInfo sets metadata copied into every RetryContext
func WithMetaInfo(metaInfo map[string]any) TemplateOption {
	return func(t *PolicyTemplate) {
		t.metaInfo = metaInfo
	}
}

// WithTemplateLogger sets the logger for sequence-level events
func WithTemplateLogger(logger *slog.Logger) TemplateOption {
	return func(t *PolicyTemplate) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewPolicyTemplate creates a template; factory is called once per sequence
func NewPolicyTemplate(factory func() AttemptPolicy, opts ...TemplateOption) *PolicyTemplate {
	t := &PolicyTemplate{
		factory:   factory,
		condition: DefaultRetryCondition,
		clock:     types.NewRealClock(),
		logger:    discardLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewNoRetryTemplate creates a template that makes a single attempt
func NewNoRetryTemplate(opts ...TemplateOption) *PolicyTemplate {
	return NewPolicyTemplate(NoRetryPolicy, opts...)
}

// NewSimpleTemplate creates a template allowing count retries, frequency apart
func NewSimpleTemplate(count int, frequency time.Duration, opts ...TemplateOption) *PolicyTemplate {
	return NewPolicyTemplate(func() AttemptPolicy {
		return NewSimplePolicy(count, frequency)
	}, opts...)
}

// NewRetryForeverTemplate creates a template that retries until success or
// until the context is done
func NewRetryForeverTemplate(frequency time.Duration, opts ...TemplateOption) *PolicyTemplate {
	return NewSimpleTemplate(RetryForever, frequency, opts...)
}

// NewBackoffTemplate creates a template allowing count retries with delays
// from backoff. The strategy is shared by concurrent sequences.
func NewBackoffTemplate(count int, backoff BackoffStrategy, opts ...TemplateOption) *PolicyTemplate {
	shared := &lockedBackoff{backoff: backoff}
	return NewPolicyTemplate(func() AttemptPolicy {
		return NewBackoffPolicy(count, shared)
	}, opts...)
}

// Execute runs callback until it succeeds, the policy is exhausted, the retry
// condition rejects a failure or ctx is done. All of these end in a populated
// RetryContext; the error result is reserved for invalid input. The executor
// is not used by the template itself.
func (t *PolicyTemplate) Execute(ctx context.Context, callback Callback, executor types.Executor) (RetryContext, error) {
	if callback == nil || t.factory == nil {
		return nil, types.ErrInvalidInput
	}

	policy := t.factory()
	rc := NewDefaultRetryContext(callback.WorkDescription(), t.metaInfo)
	start := t.clock.Now()
	attempt := 0

	finish := func() RetryContext {
		rc.MetaInfo()[MetaDuration] = t.clock.Since(start)
		return rc
	}

	for {
		attempt++
		rc.MetaInfo()[MetaAttempts] = attempt

		err := callback.DoWork(ctx, rc)
		if err == nil {
			rc.SetOk()
			// notifiers read the final duration
			finish()
			if t.notifier != nil {
				t.notifier.OnSuccess(ctx, rc)
			}
			return rc, nil
		}

		if t.notifier != nil {
			t.notifier.OnFailure(ctx, rc, err)
		}

		if ctx.Err() != nil {
			t.logger.Debug("Retry sequence cancelled", "work", rc.Description(), "attempt", attempt)
			rc.SetFailed(err)
			return finish(), nil
		}

		if !t.condition(err) {
			t.logger.Debug("Retry condition rejected failure", "work", rc.Description(), "error", err)
			rc.SetFailed(err)
			return finish(), nil
		}

		status := policy.ApplyPolicy(err)
		if status.IsExhausted() {
			t.logger.Debug("Retry policy exhausted", "work", rc.Description(), "attempts", attempt)
			rc.SetFailed(err)
			return finish(), nil
		}

		if delay := status.Delay(); delay > 0 {
			timer := t.clock.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				rc.SetFailed(err)
				return finish(), nil
			case <-timer.C():
			}
		}
	}
}
