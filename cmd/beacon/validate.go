package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/beacon"
	"github.com/jpalmerr/beacon/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a Beacon configuration file without starting the server.

This command parses the YAML, expands environment variables, validates all
fields and expands node grids. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  beacon validate -c config.yaml
  beacon validate --config /etc/beacon/config.yaml --env-file /etc/beacon/.env`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	validateCmd.Flags().String("env-file", "", "dotenv file loaded before ${VAR} expansion")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// grids are expanded here so template errors surface before serve
	probes, err := config.BuildProbes(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	nodes, push := 0, 0
	for _, p := range probes {
		for _, n := range p.Nodes() {
			nodes++
			if n.Mode() == beacon.ModePush {
				push++
			}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:             %d\n", cfg.Port)
	fmt.Fprintf(out, "  Refresh interval: %s\n", cfg.RefreshInterval.Duration())
	fmt.Fprintf(out, "  Probes:           %d\n", len(probes))
	fmt.Fprintf(out, "  Nodes:            %d push + %d local = %d total\n", push, nodes-push, nodes)
	fmt.Fprintf(out, "  Webhooks:         %d\n", len(cfg.Plugins.Webhooks))

	return nil
}
