package beacon

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// beaconConfig holds mutable state during Beacon construction.
type beaconConfig struct {
	title             string
	probes            []Probe
	port              int
	logger            *slog.Logger
	thresholds        Thresholds
	refreshInterval   time.Duration
	reporterToken     string
	managerToken      string
	webhooks          []Webhook
	loadCallbacks     []func(LoadEvent)
	pluginConcurrency int
	pluginQueueSize   int
	registerer        prometheus.Registerer
}

// Option is a function that configures a [Beacon] instance during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails, and [New] returns the first such error.
type Option func(*beaconConfig) error

// Webhook describes an HTTP endpoint receiving every applied load report as JSON.
type Webhook struct {
	// Name identifies the webhook in logs and metrics. Must be unique.
	Name string

	// URL is the http(s) endpoint to POST to.
	URL string

	// Headers are set on every request, e.g. Authorization.
	Headers map[string]string

	// Timeout bounds a single request. Zero means 5 seconds.
	Timeout time.Duration

	// OnlySick skips reports whose replica is healthy.
	OnlySick bool
}

// WithProbe adds a single [Probe].
//
// Can be called multiple times. At least one probe must be configured for
// [New] to succeed.
func WithProbe(p Probe) Option {
	return func(cfg *beaconConfig) error {
		cfg.probes = append(cfg.probes, p)
		return nil
	}
}

// WithProbes adds multiple [Probe] values.
//
// Equivalent to calling [WithProbe] multiple times.
func WithProbes(probes ...Probe) Option {
	return func(cfg *beaconConfig) error {
		cfg.probes = append(cfg.probes, probes...)
		return nil
	}
}

// WithPort sets the HTTP port used by [Beacon.Start].
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *beaconConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Beacon".
func WithTitle(title string) Option {
	return func(cfg *beaconConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Beacon instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *beaconConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithThresholds replaces the status thresholds.
//
// Start from [DefaultThresholds] to change a single value:
//
//	th := beacon.DefaultThresholds()
//	th.CPUSickAbove = 0.75
//	b, err := beacon.New(beacon.WithProbe(api), beacon.WithThresholds(th))
//
// Returns an error if a load threshold is negative or not finite, or if a
// dead delay is negative.
func WithThresholds(th Thresholds) Option {
	return func(cfg *beaconConfig) error {
		if th.CPUSickAbove < 0 || math.IsNaN(th.CPUSickAbove) || math.IsInf(th.CPUSickAbove, 0) {
			return fmt.Errorf("cpu threshold must be a non-negative number, got %g", th.CPUSickAbove)
		}
		if th.RAMSickAbove < 0 || math.IsNaN(th.RAMSickAbove) || math.IsInf(th.RAMSickAbove, 0) {
			return fmt.Errorf("ram threshold must be a non-negative number, got %g", th.RAMSickAbove)
		}
		if th.PushDeadDelay < 0 || th.LocalDeadDelay < 0 {
			return errors.New("dead delays cannot be negative")
		}
		cfg.thresholds = th
		return nil
	}
}

// WithRefreshInterval sets how often silent replicas are re-evaluated.
//
// Defaults to 5 seconds. Values below 1 second are raised to 1 second.
//
// Returns an error if the duration is zero or negative.
func WithRefreshInterval(d time.Duration) Option {
	return func(cfg *beaconConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithReporterToken protects the /reporter routes with HTTP basic auth.
//
// Reporters send the token as the password; the user name is ignored.
// An empty token leaves the routes open.
func WithReporterToken(token string) Option {
	return func(cfg *beaconConfig) error {
		cfg.reporterToken = token
		return nil
	}
}

// WithManagerToken protects the /manager routes with HTTP basic auth.
//
// An empty token leaves the routes open.
func WithManagerToken(token string) Option {
	return func(cfg *beaconConfig) error {
		cfg.managerToken = token
		return nil
	}
}

// WithWebhook forwards every applied load report to an HTTP endpoint.
//
// Can be called multiple times. Webhook calls run on the plugin workers and
// never delay report handling; failures are logged and counted.
//
// Returns an error if the name is empty or already used.
func WithWebhook(w Webhook) Option {
	return func(cfg *beaconConfig) error {
		if w.Name == "" {
			return errors.New("webhook name cannot be empty")
		}
		for _, existing := range cfg.webhooks {
			if existing.Name == w.Name {
				return fmt.Errorf("duplicate webhook name: %q", w.Name)
			}
		}
		cfg.webhooks = append(cfg.webhooks, w)
		return nil
	}
}

// WithLoadCallback registers a function called for every applied load report.
//
// Callbacks run on the plugin workers, after the report is visible in the
// state, and never delay report handling. When the plugin queue is full the
// event is dropped. Panics within callbacks are recovered and logged.
//
// Example:
//
//	b, err := beacon.New(
//	    beacon.WithProbe(api),
//	    beacon.WithLoadCallback(func(ev beacon.LoadEvent) {
//	        if ev.Status == beacon.StatusSick {
//	            log.Printf("ALERT: %s/%s is overloaded", ev.Probe, ev.Node)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithLoadCallback(cb func(LoadEvent)) Option {
	return func(cfg *beaconConfig) error {
		if cb == nil {
			return nil
		}
		cfg.loadCallbacks = append(cfg.loadCallbacks, cb)
		return nil
	}
}

// WithPluginConcurrency sets the number of plugin workers. Defaults to 4.
//
// Returns an error if the value is zero or negative.
func WithPluginConcurrency(n int) Option {
	return func(cfg *beaconConfig) error {
		if n <= 0 {
			return errors.New("plugin concurrency must be positive")
		}
		cfg.pluginConcurrency = n
		return nil
	}
}

// WithPluginQueueSize sets how many forward values may wait for a plugin
// worker before new ones are dropped. Defaults to 256.
//
// Returns an error if the value is zero or negative.
func WithPluginQueueSize(n int) Option {
	return func(cfg *beaconConfig) error {
		if n <= 0 {
			return errors.New("plugin queue size must be positive")
		}
		cfg.pluginQueueSize = n
		return nil
	}
}

// WithRegisterer registers Beacon's metrics on reg instead of a private registry.
//
// When reg is also a [prometheus.Gatherer] (as [prometheus.Registry] is), it
// backs the /metrics route. A registerer must not be shared by two Beacon
// instances.
//
// Returns an error if reg is nil.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *beaconConfig) error {
		if reg == nil {
			return errors.New("registerer cannot be nil")
		}
		cfg.registerer = reg
		return nil
	}
}
