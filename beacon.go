package beacon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/beacon/dashboard"
	"github.com/jpalmerr/beacon/internal/metrics"
	"github.com/jpalmerr/beacon/internal/plugin"
	"github.com/jpalmerr/beacon/internal/registry"
	"github.com/jpalmerr/beacon/internal/report"
	"github.com/jpalmerr/beacon/internal/server"
	"github.com/jpalmerr/beacon/internal/store"
	"github.com/jpalmerr/beacon/internal/sweeper"
)

const defaultPort = 8080

// ErrAlreadyStarted is returned when [Beacon.Start] or [Beacon.Run] is
// called a second time.
var ErrAlreadyStarted = errors.New("beacon already started")

// Beacon is the status page service: it accepts reports from probes,
// derives their status and serves the dashboard, API and badges.
//
// Beacon is created using [New] with functional options and started with
// [Beacon.Start]. The typical lifecycle is:
//
//	b, err := beacon.New(beacon.WithProbe(api))
//	if err != nil {
//	    slog.Error("failed to create beacon", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
//
// A Beacon runs once; it cannot be restarted after its context is cancelled.
type Beacon struct {
	title  string
	probes []Probe
	port   int
	logger *slog.Logger

	store      *store.MemoryStore
	metrics    *metrics.Metrics
	dispatcher *plugin.Dispatcher
	service    *report.Service
	sweeper    *sweeper.Sweeper
	server     *server.Server

	started atomic.Bool
}

// New creates a new [Beacon] instance with the given options.
//
// At least one probe must be configured via [WithProbe] or [WithProbes].
// Other options have sensible defaults:
//   - Port: 8080
//   - Refresh interval: 5 seconds
//   - Thresholds: [DefaultThresholds]
//   - Plugin workers: 4, plugin queue: 256
//
// Returns an error if no probes are configured, if probe ids repeat or if
// any option is invalid.
func New(opts ...Option) (*Beacon, error) {
	cfg := &beaconConfig{
		port:              defaultPort,
		thresholds:        DefaultThresholds(),
		refreshInterval:   sweeper.DefaultInterval,
		pluginConcurrency: plugin.DefaultWorkers,
		pluginQueueSize:   plugin.DefaultQueueSize,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.probes) == 0 {
		return nil, errors.New("at least one probe is required")
	}

	probes := make([]registry.Probe, len(cfg.probes))
	for i, p := range cfg.probes {
		probes[i] = p.toRegistry()
	}
	reg, err := registry.New(probes)
	if err != nil {
		return nil, err
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	registerer := cfg.registerer
	var gatherer prometheus.Gatherer
	if registerer == nil {
		r := prometheus.NewRegistry()
		registerer, gatherer = r, r
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}
	m := metrics.New(registerer)

	plugins, err := buildPlugins(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := plugin.NewDispatcher(plugins,
		plugin.WithWorkers(cfg.pluginConcurrency),
		plugin.WithQueueSize(cfg.pluginQueueSize),
		plugin.WithObserver(m),
		plugin.WithLogger(logger),
	)

	st := store.NewMemoryStore(reg, cfg.thresholds)
	svc := report.NewService(reg, st,
		report.WithDispatcher(dispatcher),
		report.WithRecorder(m),
		report.WithLogger(logger),
	)

	srv := server.NewServer(svc, st, server.Config{
		Port:          cfg.port,
		Title:         cfg.title,
		Assets:        dashboard.Assets,
		ReporterToken: cfg.reporterToken,
		ManagerToken:  cfg.managerToken,
		Gatherer:      gatherer,
	}, logger)

	return &Beacon{
		title:      cfg.title,
		probes:     cfg.probes,
		port:       cfg.port,
		logger:     logger,
		store:      st,
		metrics:    m,
		dispatcher: dispatcher,
		service:    svc,
		sweeper:    sweeper.New(st, cfg.refreshInterval, logger),
		server:     srv,
	}, nil
}

// buildPlugins creates the webhook and callback plugins in registration order.
func buildPlugins(cfg *beaconConfig) ([]plugin.Plugin, error) {
	plugins := make([]plugin.Plugin, 0, len(cfg.webhooks)+len(cfg.loadCallbacks))

	for _, w := range cfg.webhooks {
		wh, err := plugin.NewWebhook(plugin.WebhookConfig{
			Name:     w.Name,
			URL:      w.URL,
			Headers:  copyMap(w.Headers),
			Timeout:  w.Timeout,
			OnlySick: w.OnlySick,
		})
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, wh)
	}

	for i, cb := range cfg.loadCallbacks {
		cb := cb
		plugins = append(plugins, plugin.NewFunc(fmt.Sprintf("callback-%d", i+1), func(fv report.ForwardValue) {
			cb(newLoadEvent(fv))
		}))
	}

	return plugins, nil
}

// Start runs the background workers and serves HTTP on the configured port.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - Silent replicas are re-evaluated at the refresh interval
//   - Applied load reports are forwarded to webhooks and load callbacks
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start or if the Beacon was already started.
func (b *Beacon) Start(ctx context.Context) error {
	return b.run(ctx, true)
}

// Run is like [Beacon.Start] but does not listen on a port.
//
// Use Run with [Beacon.Handler] to mount Beacon in an existing HTTP server.
func (b *Beacon) Run(ctx context.Context) error {
	return b.run(ctx, false)
}

func (b *Beacon) run(ctx context.Context, serve bool) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	b.logger.Info("beacon starting", "probe_count", len(b.probes))
	b.logger.Info("refresh configured", "interval", b.sweeper.Interval().String())
	if serve {
		b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))
	}

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.dispatcher.Start(ctx)
	b.sweeper.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.metrics.Watch(ctx, b.store, b.sweeper.Interval())
	}()

	// cleanup stops the sweep first so no refresh races the final drain
	cleanup := func() {
		cancel()
		b.sweeper.Stop()
		wg.Wait()
		b.dispatcher.Stop()
	}

	if serve {
		if err := b.server.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("beacon stopped")
	return nil
}

// Handler returns the HTTP handler serving the dashboard, API, badges,
// reporter and manager routes.
//
// The handler works before Start; silent replicas only turn dead and load
// reports only reach plugins while [Beacon.Start] or [Beacon.Run] is running.
func (b *Beacon) Handler() http.Handler {
	return b.server.Handler()
}

// Snapshot returns a consistent copy of the current state.
func (b *Beacon) Snapshot() StatesView {
	return b.service.Snapshot()
}

// Status returns the overall status.
func (b *Beacon) Status() Status {
	return b.service.Status()
}

// Disable excludes a probe from the overall status.
func (b *Beacon) Disable(probeID string) ToggleResult {
	return b.service.Disable(probeID)
}

// Enable includes a disabled probe in the overall status again.
func (b *Beacon) Enable(probeID string) ToggleResult {
	return b.service.Enable(probeID)
}

// Probes returns a copy of the configured probes.
func (b *Beacon) Probes() []Probe {
	cp := make([]Probe, len(b.probes))
	copy(cp, b.probes)
	return cp
}

// Port returns the configured HTTP port.
func (b *Beacon) Port() int {
	return b.port
}

// Title returns the dashboard title, empty when the default is used.
func (b *Beacon) Title() string {
	return b.title
}

// RefreshInterval returns the effective interval between status sweeps.
func (b *Beacon) RefreshInterval() time.Duration {
	return b.sweeper.Interval()
}

// copyMap returns a copy of the map, or nil if input is nil.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
