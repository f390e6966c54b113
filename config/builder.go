package config

import (
	"fmt"

	"github.com/jpalmerr/beacon"
)

// Build converts parsed configuration into SDK options for [beacon.New].
//
// Thresholds left at zero keep their [beacon.DefaultThresholds] value.
// Plugin sizes left at zero keep the SDK defaults. Callers append their own
// options (logger, registerer) to the result.
func Build(cfg *Config) ([]beacon.Option, error) {
	probes, err := BuildProbes(cfg)
	if err != nil {
		return nil, err
	}

	opts := []beacon.Option{
		beacon.WithProbes(probes...),
		beacon.WithPort(cfg.Port),
		beacon.WithTitle(cfg.Title),
		beacon.WithRefreshInterval(cfg.RefreshInterval.Duration()),
		beacon.WithThresholds(buildThresholds(cfg.Thresholds)),
		beacon.WithReporterToken(cfg.Auth.ReporterToken),
		beacon.WithManagerToken(cfg.Auth.ManagerToken),
	}

	if cfg.Plugins.MaxConcurrency > 0 {
		opts = append(opts, beacon.WithPluginConcurrency(cfg.Plugins.MaxConcurrency))
	}
	if cfg.Plugins.QueueSize > 0 {
		opts = append(opts, beacon.WithPluginQueueSize(cfg.Plugins.QueueSize))
	}

	for _, wh := range cfg.Plugins.Webhooks {
		opts = append(opts, beacon.WithWebhook(beacon.Webhook{
			Name:     wh.Name,
			URL:      wh.URL,
			Headers:  wh.Headers,
			Timeout:  wh.Timeout.Duration(),
			OnlySick: wh.OnlySick,
		}))
	}

	return opts, nil
}

// BuildProbes converts the probe configuration into SDK probes.
//
// Explicit nodes come first, followed by grid-generated nodes in grid order.
func BuildProbes(cfg *Config) ([]beacon.Probe, error) {
	probes := make([]beacon.Probe, 0, len(cfg.Probes))

	for i, pc := range cfg.Probes {
		nodes := make([]beacon.Node, 0, len(pc.Nodes))

		for j, nc := range pc.Nodes {
			n, err := buildNode(nc)
			if err != nil {
				return nil, fmt.Errorf("probes[%d] (%s).nodes[%d]: %w", i, pc.ID, j, err)
			}
			nodes = append(nodes, n)
		}

		for j, gc := range pc.Grids {
			gridNodes, err := buildGridNodes(gc)
			if err != nil {
				return nil, fmt.Errorf("probes[%d] (%s).grids[%d]: %w", i, pc.ID, j, err)
			}
			nodes = append(nodes, gridNodes...)
		}

		var probeOpts []beacon.ProbeOption
		if pc.Label != "" {
			probeOpts = append(probeOpts, beacon.WithProbeLabel(pc.Label))
		}

		p, err := beacon.NewProbe(pc.ID, nodes, probeOpts...)
		if err != nil {
			return nil, fmt.Errorf("probes[%d]: %w", i, err)
		}
		probes = append(probes, p)
	}

	return probes, nil
}

// buildNode converts a single NodeConfig to an SDK Node.
func buildNode(nc NodeConfig) (beacon.Node, error) {
	var opts []beacon.NodeOption

	if nc.Label != "" {
		opts = append(opts, beacon.WithNodeLabel(nc.Label))
	}
	if len(nc.Replicas) > 0 {
		opts = append(opts, beacon.WithReplicas(nc.Replicas...))
	}

	if nc.Mode == string(beacon.ModeLocal) {
		return beacon.LocalNode(nc.ID, opts...)
	}
	return beacon.PushNode(nc.ID, opts...)
}

// buildGridNodes expands a GridConfig into SDK nodes.
func buildGridNodes(gc GridConfig) ([]beacon.Node, error) {
	opts := []beacon.GridOption{
		beacon.WithIDTemplate(gc.IDTemplate),
		beacon.WithDimensions(gc.Dimensions),
	}
	if gc.Label != "" {
		opts = append(opts, beacon.WithGridLabel(gc.Label))
	}
	if len(gc.Replicas) > 0 {
		opts = append(opts, beacon.WithGridReplicas(gc.Replicas...))
	}

	return beacon.NewNodeGrid(beacon.Mode(gc.Mode), opts...)
}

// buildThresholds overlays configured thresholds on the defaults.
func buildThresholds(tc ThresholdsConfig) beacon.Thresholds {
	th := beacon.DefaultThresholds()
	if tc.CPUSickAbove > 0 {
		th.CPUSickAbove = tc.CPUSickAbove
	}
	if tc.RAMSickAbove > 0 {
		th.RAMSickAbove = tc.RAMSickAbove
	}
	if tc.PushDeadDelay > 0 {
		th.PushDeadDelay = tc.PushDeadDelay.Duration()
	}
	if tc.LocalDeadDelay > 0 {
		th.LocalDeadDelay = tc.LocalDeadDelay.Duration()
	}
	return th
}
