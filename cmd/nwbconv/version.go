package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nwbconv/internal/infrastructure"
)

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Override the root hook so printing the version never touches
	// config, log files, or telemetry.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nwbconv version %s\n", infrastructure.ServiceVersion)
	},
}
