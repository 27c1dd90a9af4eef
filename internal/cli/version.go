package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version, Commit, Date string
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "retryctl version: %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", Date)
	},
}

func init() {
	rootCommand.AddCommand(versionCommand)
}
