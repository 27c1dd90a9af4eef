// Package retry provides backoff algorithm implementations
package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the wait before a retry
type BackoffStrategy interface {
	// NextDelay calculates the delay before retry number attempt (1-based)
	NextDelay(attempt int) time.Duration

	// Reset resets the backoff state
	Reset()
}

// defaultMaxDelay caps growing strategies unless overridden
const defaultMaxDelay = 30 * time.Second

// backoffConfig holds the settings shared by the built-in strategies
type backoffConfig struct {
	multiplier float64
	maxDelay   time.Duration
	jitter     JitterFunc
}

// BackoffStrategyOption configures a built-in backoff strategy
type BackoffStrategyOption func(*backoffConfig)

// WithBackoffMultiplier sets backoff multiplier (exponential backoff only)
func WithBackoffMultiplier(multiplier float64) BackoffStrategyOption {
	return func(c *backoffConfig) {
		if multiplier > 0 {
			c.multiplier = multiplier
		}
	}
}

// WithBackoffMaxDelay sets maximum delay time
func WithBackoffMaxDelay(maxDelay time.Duration) BackoffStrategyOption {
	return func(c *backoffConfig) {
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithBackoffJitter sets jitter function
func WithBackoffJitter(jitter JitterFunc) BackoffStrategyOption {
	return func(c *backoffConfig) {
		c.jitter = jitter
	}
}

func newBackoffConfig(opts []BackoffStrategyOption) backoffConfig {
	cfg := backoffConfig{
		multiplier: 2.0,
		maxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// finish caps delay and applies jitter
func (c backoffConfig) finish(delay time.Duration) time.Duration {
	if delay > c.maxDelay || delay < 0 {
		delay = c.maxDelay
	}
	if c.jitter != nil {
		delay = c.jitter(delay)
	}
	return delay
}

// FixedBackoff waits the same delay before every retry
type FixedBackoff struct {
	delay  time.Duration
	jitter JitterFunc
}

// NewFixedBackoff creates a fixed backoff strategy. Only the jitter option applies.
func NewFixedBackoff(delay time.Duration, opts ...BackoffStrategyOption) *FixedBackoff {
	cfg := newBackoffConfig(opts)
	return &FixedBackoff{
		delay:  delay,
		jitter: cfg.jitter,
	}
}

func (b *FixedBackoff) NextDelay(attempt int) time.Duration {
	if b.jitter != nil {
		return b.jitter(b.delay)
	}
	return b.delay
}

// Reset is a no-op; fixed backoff is stateless
func (b *FixedBackoff) Reset() {}

// ExponentialBackoff multiplies the delay after every retry
type ExponentialBackoff struct {
	initialDelay time.Duration
	cfg          backoffConfig
}

// NewExponentialBackoff creates an exponential backoff strategy
func NewExponentialBackoff(initialDelay time.Duration, opts ...BackoffStrategyOption) *ExponentialBackoff {
	return &ExponentialBackoff{
		initialDelay: initialDelay,
		cfg:          newBackoffConfig(opts),
	}
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	raw := float64(b.initialDelay) * math.Pow(b.cfg.multiplier, float64(attempt-1))
	if raw > float64(b.cfg.maxDelay) {
		return b.cfg.finish(b.cfg.maxDelay)
	}
	return b.cfg.finish(time.Duration(raw))
}

// Reset is a no-op; exponential backoff is stateless
func (b *ExponentialBackoff) Reset() {}

// LinearBackoff adds a fixed increment after every retry
type LinearBackoff struct {
	initialDelay time.Duration
	increment    time.Duration
	cfg          backoffConfig
}

// NewLinearBackoff creates a linear backoff strategy
func NewLinearBackoff(initialDelay, increment time.Duration, opts ...BackoffStrategyOption) *LinearBackoff {
	return &LinearBackoff{
		initialDelay: initialDelay,
		increment:    increment,
		cfg:          newBackoffConfig(opts),
	}
}

func (b *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	delay := b.initialDelay + time.Duration(attempt-1)*b.increment
	return b.cfg.finish(delay)
}

// Reset is a no-op; linear backoff is stateless
func (b *LinearBackoff) Reset() {}

// JitterFunc jitter function type
type JitterFunc func(time.Duration) time.Duration

// FullJitter full jitter function - random within [0, delay) range
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter equal jitter function - delay/2 + random(0, delay/2)
func EqualJitter(delay time.Duration) time.Duration {
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}
