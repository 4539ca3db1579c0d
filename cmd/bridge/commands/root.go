// Package commands provides the CLI commands for the bridge.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	configPath string
	logLevel   string
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "localbridge - approval-gated file access for autonomous agents",
	Long: `localbridge lets an agent request narrow, time-boxed, auditable
permission to read or write files in your workspace. You grant, deny,
or revoke each request from the local dashboard; every access decision
is written to an audit ledger.

Run 'bridge serve' to start the daemon.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (bridge.jsonc|bridge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("bridge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	// Local .env is a convenience for BRIDGE_* overrides; absence is fine.
	_ = godotenv.Load()

	return rootCmd.Execute()
}
