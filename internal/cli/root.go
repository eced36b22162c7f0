// Package cli implements the RankFlow command-line interface using Cobra.
// Each subcommand opens the configured store, applies one operation and
// flushes pending saves before exiting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rankflow",
	Short: "RankFlow: rank tasks by priority, difficulty and urgency",
	Long: `RankFlow keeps every task in three independent orderings.
Reorder by priority, difficulty or urgency, track habits and jot notes,
from the terminal or through the JSON API started by 'rankflow serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
