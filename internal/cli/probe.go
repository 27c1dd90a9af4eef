package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jzx17/goretry/internal/probe"
	"github.com/jzx17/goretry/pkg/retry"
	"github.com/jzx17/goretry/pkg/worker"
	"github.com/spf13/cobra"
)

var probeCommand = &cobra.Command{
	Use:     "probe ADDRESS...",
	Short:   "Check that TCP addresses accept connections",
	GroupID: "retry",
	Long: `Dials every address with the configured retry policy. All probes are
queued first and released together, so slow targets do not delay the start
of the others. Queued probes hold their pool slot until release, so at most
pool.size plus pool.queue_size addresses can be probed in one run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cfg.Logger(os.Stderr).With("component", "probe")

		template, err := cfg.Policy.Template(
			retry.WithTemplateLogger(logger),
			retry.WithNotifier(retry.NewLogNotifier(logger)),
		)
		if err != nil {
			return err
		}

		pool, err := worker.NewFixedWorkerPool(cfg.Pool.WorkerPoolConfig(logger))
		if err != nil {
			return fmt.Errorf("failed to create worker pool: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := pool.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker pool: %w", err)
		}
		defer func() { _ = pool.Close() }()

		results, err := probe.Run(ctx, args, probe.Options{
			Policy:      template,
			Executor:    pool,
			DialTimeout: dialTimeout,
			Logger:      logger,
		})
		printResults(cmd.OutOrStdout(), results)
		if err != nil {
			return err
		}

		if failed := probe.Failed(results); failed > 0 {
			return fmt.Errorf("%d of %d probes failed", failed, len(results))
		}
		return nil
	},
}

func printResults(w io.Writer, results []probe.Result) {
	for _, r := range results {
		detail := dimStyle.Render(fmt.Sprintf("attempts=%d duration=%s", r.Attempts, r.Duration.Round(time.Millisecond)))
		if r.Ok {
			fmt.Fprintf(w, "%s %s -> %s %s\n", okStyle.Render("OK  "), r.Address, r.Remote, detail)
			continue
		}
		fmt.Fprintf(w, "%s %s %s error=%v\n", failStyle.Render("FAIL"), r.Address, detail, r.Err)
	}
}

func init() {
	rootCommand.AddCommand(probeCommand)
}
