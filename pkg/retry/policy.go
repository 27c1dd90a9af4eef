package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jzx17/goretry/pkg/types"
)

// Policy runs a Callback zero or more times and returns the populated
// RetryContext. An exhausted policy is not an error: it is reported through
// the outcome (IsOk false, LastFailure set). A non-nil error means the policy
// itself could not run.
type Policy interface {
	Execute(ctx context.Context, callback Callback, executor types.Executor) (RetryContext, error)
}

// AttemptPolicy decides, failure by failure, whether a retry sequence goes on.
// A new instance is created for every sequence, so implementations may keep
// per-sequence state without locking.
type AttemptPolicy interface {
	ApplyPolicy(cause error) PolicyStatus
}

// PolicyStatus is the decision made by an AttemptPolicy
type PolicyStatus struct {
	exhausted bool
	cause     error
	delay     time.Duration
}

// PolicyOk allows another attempt after delay
func PolicyOk(delay time.Duration) PolicyStatus {
	return PolicyStatus{delay: delay}
}

// PolicyExhausted stops the sequence; cause is the failure that ended it
func PolicyExhausted(cause error) PolicyStatus {
	return PolicyStatus{exhausted: true, cause: cause}
}

// IsOk reports whether another attempt is allowed
func (s PolicyStatus) IsOk() bool {
	return !s.exhausted
}

// IsExhausted reports whether the sequence must stop
func (s PolicyStatus) IsExhausted() bool {
	return s.exhausted
}

// Cause returns the failure that exhausted the policy
func (s PolicyStatus) Cause() error {
	return s.cause
}

// Delay returns the wait before the next attempt
func (s PolicyStatus) Delay() time.Duration {
	return s.delay
}

// RetryForever is the count that never exhausts a count-based policy
const RetryForever = -1

type noRetryPolicy struct{}

// NoRetryPolicy returns a policy that is exhausted by the first failure
func NoRetryPolicy() AttemptPolicy {
	return noRetryPolicy{}
}

func (noRetryPolicy) ApplyPolicy(cause error) PolicyStatus {
	return PolicyExhausted(cause)
}

// SimplePolicy allows count retries with a fixed frequency between them
type SimplePolicy struct {
	count     int
	frequency time.Duration
	retries   int
}

// NewSimplePolicy creates a fixed-count, fixed-frequency policy. A count of
// RetryForever never exhausts.
func NewSimplePolicy(count int, frequency time.Duration) *SimplePolicy {
	return &SimplePolicy{
		count:     count,
		frequency: frequency,
	}
}

// ApplyPolicy counts the failure against the retry budget
func (p *SimplePolicy) ApplyPolicy(cause error) PolicyStatus {
	if p.count != RetryForever && p.retries >= p.count {
		return PolicyExhausted(cause)
	}
	p.retries++
	return PolicyOk(p.frequency)
}

// Retries returns the number of retries granted so far
func (p *SimplePolicy) Retries() int {
	return p.retries
}

// BackoffPolicy allows count retries, waiting for the delay computed by a
// BackoffStrategy. A RetryableError carrying RetryAfter overrides the delay.
type BackoffPolicy struct {
	count   int
	backoff BackoffStrategy
	retries int
}

// NewBackoffPolicy creates a count-based policy driven by backoff
func NewBackoffPolicy(count int, backoff BackoffStrategy) *BackoffPolicy {
	backoff.Reset()
	return &BackoffPolicy{
		count:   count,
		backoff: backoff,
	}
}

// ApplyPolicy counts the failure and computes the next delay
func (p *BackoffPolicy) ApplyPolicy(cause error) PolicyStatus {
	if p.count != RetryForever && p.retries >= p.count {
		return PolicyExhausted(cause)
	}
	p.retries++

	if hint := types.GetRetryDelay(cause); hint > 0 {
		return PolicyOk(hint)
	}
	return PolicyOk(p.backoff.NextDelay(p.retries))
}

// RetryCondition is a function that determines retry conditions
type RetryCondition func(error) bool

// DefaultRetryCondition retries every error except context errors and errors
// marked with types.Permanent.
func DefaultRetryCondition(err error) bool {
	if err == nil {
		return false
	}

	if types.IsRetryable(err) {
		return true
	}

	if types.IsPermanent(err) {
		return false
	}

	// context-related errors are not retried
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// RetryableOnly retries only errors explicitly marked retryable
func RetryableOnly(err error) bool {
	return types.IsRetryable(err)
}

// lockedBackoff serializes a strategy shared by concurrent sequences
type lockedBackoff struct {
	mu      sync.Mutex
	backoff BackoffStrategy
}

func (b *lockedBackoff) NextDelay(attempt int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backoff.NextDelay(attempt)
}

func (b *lockedBackoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backoff.Reset()
}
