// Package config loads retryctl settings from defaults, an optional YAML
// file and GORETRY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/jzx17/goretry/pkg/retry"
	"github.com/jzx17/goretry/pkg/worker"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "GORETRY"

// Policy kinds accepted in PolicyConfig.Kind
const (
	KindNone        = "none"
	KindSimple      = "simple"
	KindForever     = "forever"
	KindExponential = "exponential"
	KindLinear      = "linear"
)

// Jitter names accepted in PolicyConfig.Jitter
const (
	JitterNone  = "none"
	JitterFull  = "full"
	JitterEqual = "equal"
)

// Config is the complete retryctl configuration
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Pool     PoolConfig   `mapstructure:"pool"`
	Policy   PolicyConfig `mapstructure:"policy"`
	Watch    WatchConfig  `mapstructure:"watch"`
}

// PoolConfig sizes the worker pool that runs retry workers
type PoolConfig struct {
	Size          int           `mapstructure:"size"`
	QueueSize     int           `mapstructure:"queue_size"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
}

// PolicyConfig selects and tunes the retry policy
type PolicyConfig struct {
	Kind         string        `mapstructure:"kind"`
	Count        int           `mapstructure:"count"`
	Frequency    time.Duration `mapstructure:"frequency"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Increment    time.Duration `mapstructure:"increment"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	Jitter       string        `mapstructure:"jitter"`
}

// WatchConfig drives the periodic probe loop and its metrics endpoint
type WatchConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// NewViper returns a viper instance carrying the defaults and environment
// binding used by Load. Callers may bind flags to it before loading.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("log_level", "info")

	v.SetDefault("pool.size", 10)
	v.SetDefault("pool.queue_size", 100)
	v.SetDefault("pool.submit_timeout", 5*time.Second)
	v.SetDefault("pool.stop_timeout", 10*time.Second)

	v.SetDefault("policy.kind", KindSimple)
	v.SetDefault("policy.count", 3)
	v.SetDefault("policy.frequency", 2*time.Second)
	v.SetDefault("policy.initial_delay", 100*time.Millisecond)
	v.SetDefault("policy.increment", 100*time.Millisecond)
	v.SetDefault("policy.max_delay", 30*time.Second)
	v.SetDefault("policy.multiplier", 2.0)
	v.SetDefault("policy.jitter", JitterNone)

	v.SetDefault("watch.interval", 30*time.Second)
	v.SetDefault("watch.metrics_addr", ":9090")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads file (if not empty) into v and decodes the result. A nil v is
// replaced by NewViper().
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.Pool.validate()...)
	errs = append(errs, c.Policy.validate()...)
	if c.Watch.Interval <= 0 {
		errs = append(errs, fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval))
	}

	return errors.Join(errs...)
}

func (p PoolConfig) validate() []error {
	var errs []error
	if p.Size <= 0 {
		errs = append(errs, fmt.Errorf("pool.size must be positive, got %d", p.Size))
	}
	if p.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("pool.queue_size must be positive, got %d", p.QueueSize))
	}
	if p.SubmitTimeout < 0 {
		errs = append(errs, fmt.Errorf("pool.submit_timeout must not be negative, got %s", p.SubmitTimeout))
	}
	return errs
}

func (p PolicyConfig) validate() []error {
	var errs []error

	switch p.Kind {
	case KindNone, KindForever:
	case KindSimple, KindExponential, KindLinear:
		if p.Count < 0 && p.Count != retry.RetryForever {
			errs = append(errs, fmt.Errorf("policy.count must be >= 0 or %d, got %d", retry.RetryForever, p.Count))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown policy.kind %q", p.Kind))
	}

	if p.Frequency < 0 || p.InitialDelay < 0 || p.Increment < 0 || p.MaxDelay < 0 {
		errs = append(errs, errors.New("policy delays must not be negative"))
	}

	switch p.Jitter {
	case "", JitterNone, JitterFull, JitterEqual:
	default:
		errs = append(errs, fmt.Errorf("unknown policy.jitter %q", p.Jitter))
	}

	return errs
}

// Template builds the policy template described by the configuration
func (p PolicyConfig) Template(opts ...retry.TemplateOption) (*retry.PolicyTemplate, error) {
	if errs := p.validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	backoffOpts := []retry.BackoffStrategyOption{
		retry.WithBackoffMaxDelay(p.MaxDelay),
		retry.WithBackoffMultiplier(p.Multiplier),
	}
	if jitter := p.jitterFunc(); jitter != nil {
		backoffOpts = append(backoffOpts, retry.WithBackoffJitter(jitter))
	}

	switch p.Kind {
	case KindNone:
		return retry.NewNoRetryTemplate(opts...), nil
	case KindForever:
		return retry.NewRetryForeverTemplate(p.Frequency, opts...), nil
	case KindExponential:
		return retry.NewBackoffTemplate(p.Count,
			retry.NewExponentialBackoff(p.InitialDelay, backoffOpts...), opts...), nil
	case KindLinear:
		return retry.NewBackoffTemplate(p.Count,
			retry.NewLinearBackoff(p.InitialDelay, p.Increment, backoffOpts...), opts...), nil
	default:
		return retry.NewSimpleTemplate(p.Count, p.Frequency, opts...), nil
	}
}

func (p PolicyConfig) jitterFunc() retry.JitterFunc {
	switch p.Jitter {
	case JitterFull:
		return retry.FullJitter
	case JitterEqual:
		return retry.EqualJitter
	default:
		return nil
	}
}

// WorkerPoolConfig converts the pool settings for worker.NewFixedWorkerPool
func (p PoolConfig) WorkerPoolConfig(logger *slog.Logger) *worker.FixedWorkerPoolConfig {
	cfg := worker.DefaultFixedWorkerPoolConfig()
	cfg.PoolSize = p.Size
	cfg.QueueSize = p.QueueSize
	cfg.SubmitTimeout = p.SubmitTimeout
	cfg.StopTimeout = p.StopTimeout
	cfg.Logger = logger
	return cfg
}
