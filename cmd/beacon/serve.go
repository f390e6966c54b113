package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/beacon"
	"github.com/jpalmerr/beacon/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the Beacon server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status page server",
	Long: `Start the Beacon status page server.

The server will:
  - Load configuration from the specified YAML file
  - Accept reports on /reporter and admin toggles on /manager
  - Serve the dashboard, API, badges and metrics on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  beacon serve -c config.yaml
  beacon serve --config /etc/beacon/config.yaml --env-file /etc/beacon/.env`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().String("env-file", "", "dotenv file loaded before ${VAR} expansion")
	_ = serveCmd.MarkFlagRequired("config")
}

// loadConfig loads the optional env file, then the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"probes", len(cfg.Probes),
		"webhooks", len(cfg.Plugins.Webhooks),
		"reporter_auth", cfg.Auth.ReporterToken != "",
		"manager_auth", cfg.Auth.ManagerToken != "",
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"refresh_interval", cfg.RefreshInterval.Duration().String(),
	)

	opts, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build probes: %w", err)
	}
	opts = append(opts, beacon.WithLogger(logger))

	b, err := beacon.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create Beacon: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- b.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
