package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/beacon/internal/report"
	"github.com/jpalmerr/beacon/internal/store"
)

const namespace = "beacon"

// DefaultResync is the interval between full gauge resyncs in [Metrics.Watch].
const DefaultResync = 5 * time.Second

// Metrics holds all Prometheus instruments.
//
// Metrics implements report.Recorder and the plugin dispatch observer.
type Metrics struct {
	Reports        *prometheus.CounterVec
	Flushes        *prometheus.CounterVec
	Superseded     prometheus.Counter
	PluginDispatch *prometheus.CounterVec
	PluginDropped  prometheus.Counter
	ProbeStatus    *prometheus.GaugeVec
	Status         prometheus.Gauge
}

// New creates the instruments and registers them on reg.
// A nil reg falls back to a fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_total",
				Help:      "Total number of reports received, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		Flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flushes_total",
				Help:      "Total number of replica flush requests, by outcome",
			},
			[]string{"outcome"},
		),

		Superseded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_superseded_total",
				Help:      "Accepted reports dropped because a flush happened while they were in flight",
			},
		),

		PluginDispatch: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plugin_dispatch_total",
				Help:      "Total number of plugin calls, by plugin and result",
			},
			[]string{"plugin", "result"},
		),

		PluginDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plugin_dropped_total",
				Help:      "Forward values dropped because the plugin queue was full",
			},
		),

		ProbeStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "probe_status",
				Help:      "Derived probe status (0 healthy, 1 sick, 2 dead)",
			},
			[]string{"probe"},
		),

		Status: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "status",
				Help:      "Overall status of enabled probes (0 healthy, 1 sick, 2 dead)",
			},
		),
	}
}

// ObserveReport counts a report outcome. Reports rejected before decoding
// have no kind and are counted as "unknown".
func (m *Metrics) ObserveReport(kind report.Kind, outcome report.Outcome) {
	k := string(kind)
	if k == "" {
		k = "unknown"
	}
	m.Reports.WithLabelValues(k, string(outcome)).Inc()
}

// ObserveFlush counts a flush outcome.
func (m *Metrics) ObserveFlush(outcome report.Outcome) {
	m.Flushes.WithLabelValues(string(outcome)).Inc()
}

// ObserveSuperseded counts a report dropped by a concurrent flush.
func (m *Metrics) ObserveSuperseded(report.Kind) {
	m.Superseded.Inc()
}

// ObserveDispatch counts a plugin call result ("ok", "error" or "panic").
func (m *Metrics) ObserveDispatch(plugin, result string) {
	m.PluginDispatch.WithLabelValues(plugin, result).Inc()
}

// ObserveDropped counts a forward value dropped by a full plugin queue.
func (m *Metrics) ObserveDropped() {
	m.PluginDropped.Inc()
}

// SetStates sets every status gauge from a snapshot.
func (m *Metrics) SetStates(v store.StatesView) {
	m.Status.Set(float64(v.Status.Severity()))
	for _, p := range v.Probes {
		m.ProbeStatus.WithLabelValues(p.ID).Set(float64(p.Status.Severity()))
	}
}

// SetProbe updates the gauges from a single probe update.
func (m *Metrics) SetProbe(u store.ProbeUpdate) {
	m.Status.Set(float64(u.Status.Severity()))
	m.ProbeStatus.WithLabelValues(u.Probe.ID).Set(float64(u.Probe.Status.Severity()))
}

// Watch keeps the status gauges in sync with the store until ctx is done.
//
// Updates come from a store subscription, which drops values when its buffer
// is full, so the gauges are also reset from a full snapshot every resync.
// A resync <= 0 uses [DefaultResync].
//
// Watch blocks; run it in its own goroutine.
func (m *Metrics) Watch(ctx context.Context, st store.Store, resync time.Duration) {
	if resync <= 0 {
		resync = DefaultResync
	}

	updates := st.Subscribe()
	defer st.Unsubscribe(updates)

	m.SetStates(st.Snapshot())

	ticker := time.NewTicker(resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetStates(st.Snapshot())
		case u, ok := <-updates:
			if !ok {
				return
			}
			m.SetProbe(u)
		}
	}
}
