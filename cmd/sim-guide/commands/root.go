// Package commands provides the CLI commands for sim-guide.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	directory string
)

var rootCmd = &cobra.Command{
	Use:   "sim-guide",
	Short: "sim-guide - session state lifecycle and promotion engine",
	Long: `sim-guide manages long-lived, versioned session state: idempotent
bootstrap, forward-only schema migration, deferred event persistence,
and promotion of valuable sessions into a cross-session memory store.

Run 'sim-guide serve' to start the HTTP API, or 'sim-guide state' to
inspect a stored session.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&directory, "directory", "", "Working directory for config and .env")

	rootCmd.SetVersionTemplate(fmt.Sprintf("sim-guide %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stateCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
