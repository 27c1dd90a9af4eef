// Package metrics exposes retry and worker pool activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jzx17/goretry/pkg/retry"
	"github.com/jzx17/goretry/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goretry"

// Metrics records attempt and sequence results. It implements
// retry.Notifier, so it can be attached to a PolicyTemplate with
// retry.WithNotifier.
type Metrics struct {
	attempts  *prometheus.CounterVec // attempts by work and result
	sequences *prometheus.CounterVec // finished sequences by result
	duration  prometheus.Histogram   // duration of successful sequences
}

var _ retry.Notifier = (*Metrics)(nil)

// New creates the retry metrics and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total number of attempts made by retry policies",
		}, []string{"work", "result"}),

		sequences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "sequences_total",
			Help:      "Total number of retry sequences that ended in success",
		}, []string{"work"}),

		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "sequence_duration_seconds",
			Help:      "Time from first attempt to success",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.sequences, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) OnSuccess(ctx context.Context, rc retry.RetryContext) {
	m.attempts.WithLabelValues(rc.Description(), "success").Inc()
	m.sequences.WithLabelValues(rc.Description()).Inc()
	if d, ok := rc.MetaInfo()[retry.MetaDuration].(time.Duration); ok {
		m.duration.Observe(d.Seconds())
	}
}

func (m *Metrics) OnFailure(ctx context.Context, rc retry.RetryContext, err error) {
	result := "failure"
	if types.IsPermanent(err) {
		result = "permanent"
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result = "cancelled"
	}
	m.attempts.WithLabelValues(rc.Description(), result).Inc()
}

// poolCollector reads worker pool stats at scrape time
type poolCollector struct {
	name string
	pool types.WorkerPool

	size      *prometheus.Desc
	active    *prometheus.Desc
	queued    *prometheus.Desc
	capacity  *prometheus.Desc
	processed *prometheus.Desc
	failed    *prometheus.Desc
}

// NewPoolCollector creates a collector reporting the stats of pool under the
// given pool label
func NewPoolCollector(name string, pool types.WorkerPool) prometheus.Collector {
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", metric),
			help, nil, prometheus.Labels{"pool": name})
	}

	return &poolCollector{
		name:      name,
		pool:      pool,
		size:      desc("workers", "Number of pool workers"),
		active:    desc("active_workers", "Number of workers running a task"),
		queued:    desc("queued_tasks", "Number of tasks waiting in the queue"),
		capacity:  desc("queue_capacity", "Capacity of the task queue"),
		processed: desc("processed_total", "Total number of tasks completed without error"),
		failed:    desc("failed_total", "Total number of tasks that failed or panicked"),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.active
	ch <- c.queued
	ch <- c.capacity
	ch <- c.processed
	ch <- c.failed
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(stats.PoolSize))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(stats.ActiveWorkers))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(stats.QueueSize))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(stats.QueueCapacity))
	ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(stats.TotalProcessed))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(stats.TotalFailed))
}

// Handler serves the metrics gathered by reg
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
