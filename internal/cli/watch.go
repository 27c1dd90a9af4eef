package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jzx17/goretry/internal/metrics"
	"github.com/jzx17/goretry/internal/probe"
	"github.com/jzx17/goretry/pkg/retry"
	"github.com/jzx17/goretry/pkg/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var watchCommand = &cobra.Command{
	Use:     "watch ADDRESS...",
	Short:   "Probe TCP addresses periodically and export metrics",
	GroupID: "retry",
	Long: `Runs the probe on a fixed interval until interrupted. Retry attempts and
worker pool stats are served in Prometheus format on the metrics address.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cfg.Logger(os.Stderr).With("component", "watch")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		retryMetrics, err := metrics.New(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		template, err := cfg.Policy.Template(
			retry.WithTemplateLogger(logger),
			retry.WithNotifier(retry.Notifiers(retry.NewLogNotifier(logger), retryMetrics)),
		)
		if err != nil {
			return err
		}

		pool, err := worker.NewFixedWorkerPool(cfg.Pool.WorkerPoolConfig(logger))
		if err != nil {
			return fmt.Errorf("failed to create worker pool: %w", err)
		}
		reg.MustRegister(metrics.NewPoolCollector("watch", pool))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := pool.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker pool: %w", err)
		}
		defer func() { _ = pool.Close() }()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		server := &http.Server{
			Addr:              cfg.Watch.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("Metrics server started", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		watcher, err := probe.NewWatcher(args, probe.Options{
			Policy:      template,
			Executor:    pool,
			DialTimeout: dialTimeout,
			Logger:      logger,
		}, cfg.Watch.Interval, func(results []probe.Result) {
			printResults(cmd.OutOrStdout(), results)
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			logger.Warn("Shutting down watcher due to system signal")
		case err = <-serverErr:
			logger.Error("Metrics server failed", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(err, watcher.Stop(), server.Shutdown(shutdownCtx))
	},
}

func init() {
	flags := watchCommand.Flags()
	flags.Duration("interval", 30*time.Second, "Time between probe rounds")
	flags.String("metrics-addr", ":9090", "Address of the Prometheus metrics endpoint")
	_ = settings.BindPFlag("watch.interval", flags.Lookup("interval"))
	_ = settings.BindPFlag("watch.metrics_addr", flags.Lookup("metrics-addr"))

	rootCommand.AddCommand(watchCommand)
}
