// Package main is the entry point for the beacon CLI.
//
// Beacon can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	beacon serve -c config.yaml [--env-file .env] # Start the status page
//	beacon validate -c config.yaml                 # Validate configuration
//	beacon version                                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "A status page fed by probe reports",
	Long: `Beacon is a status page service fed by reports from the systems it watches.

Push nodes report their cpu and ram load, local nodes report a health
verdict. Beacon derives a status per replica, node and probe and serves it
as a dashboard, a JSON API, a live SSE stream and SVG badges.

Quick start:
  1. Create a config file (beacon.yaml)
  2. Run: beacon serve -c beacon.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  probes:
    - id: api
      nodes:
        - id: worker-1
          mode: push
        - id: gateway
          mode: local`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this beacon binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "beacon %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
