package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Watcher probes a set of addresses on a fixed interval
type Watcher struct {
	addresses []string
	opts      Options
	interval  time.Duration
	onRound   func([]Result)
	logger    *slog.Logger

	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	rounds    atomic.Int64
	mu        sync.Mutex
}

// NewWatcher creates a watcher. onRound, if not nil, receives the results of
// every completed round.
func NewWatcher(addresses []string, opts Options, interval time.Duration, onRound func([]Result)) (*Watcher, error) {
	if len(addresses) == 0 {
		return nil, errors.New("at least one address is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	if err := checkCapacity(len(addresses), opts.Executor); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		addresses: addresses,
		opts:      opts,
		interval:  interval,
		onRound:   onRound,
		logger:    logger,
	}, nil
}

// Start schedules the first round immediately and the next ones every
// interval. Rounds never overlap.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.scheduler != nil {
		return errors.New("watcher is already running")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)

	job, err := s.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.round),
		gocron.WithName("probe"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		w.cancel()
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule probe job: %w", err)
	}

	s.Start()
	w.scheduler = s
	w.logger.Info("Probe watcher started",
		"job_id", job.ID(), "interval", w.interval, "targets", len(w.addresses))
	return nil
}

// Stop cancels a running round and shuts the scheduler down
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.scheduler == nil {
		return nil
	}

	w.cancel()
	err := w.scheduler.Shutdown()
	w.scheduler = nil
	return err
}

// Rounds returns the number of completed rounds
func (w *Watcher) Rounds() int64 {
	return w.rounds.Load()
}

func (w *Watcher) round() {
	results, err := Run(w.ctx, w.addresses, w.opts)
	if err != nil {
		w.logger.Warn("Probe round failed", "error", err)
		return
	}

	n := w.rounds.Add(1)
	w.logger.Info("Probe round completed",
		"round", n, "targets", len(results), "failed", Failed(results))
	if w.onRound != nil {
		w.onRound(results)
	}
}
