package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set by main.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("duplicalis %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
	},
}
