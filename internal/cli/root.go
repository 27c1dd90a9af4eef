package cli

import (
	"time"

	"github.com/jzx17/goretry/internal/config"
	"github.com/jzx17/goretry/internal/probe"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	dialTimeout time.Duration
)

var settings = config.NewViper()

var rootCommand = &cobra.Command{
	Use:   "retryctl",
	Short: "retryctl: run retry policies against network targets",
	Long: `retryctl drives the goretry engine from the command line.
Policies and pool sizes are read from flags, an optional YAML file and
GORETRY_* environment variables, in that order of precedence.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCommand.Execute()
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "retry", Title: "Retry"})

	flags := rootCommand.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flags.String("policy", config.KindSimple, "Retry policy (none, simple, forever, exponential, linear)")
	flags.Int("count", 3, "Number of retries after the first attempt")
	flags.Duration("frequency", 2*time.Second, "Delay between retries for the simple and forever policies")
	flags.Int("pool-size", 10, "Number of pool workers")
	flags.DurationVar(&dialTimeout, "dial-timeout", probe.DefaultDialTimeout, "Timeout of a single dial attempt")

	// Bind to config keys; flags win over file and env only when set
	_ = settings.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = settings.BindPFlag("policy.kind", flags.Lookup("policy"))
	_ = settings.BindPFlag("policy.count", flags.Lookup("count"))
	_ = settings.BindPFlag("policy.frequency", flags.Lookup("frequency"))
	_ = settings.BindPFlag("pool.size", flags.Lookup("pool-size"))
}

func loadConfig() (*config.Config, error) {
	return config.Load(settings, configFile)
}
