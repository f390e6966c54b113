package config

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/beacon"
)

func TestBuildProbes_NodesAndGrids(t *testing.T) {
	cfg := &Config{
		Probes: []ProbeConfig{
			{
				ID:    "api",
				Label: "Public API",
				Nodes: []NodeConfig{
					{ID: "worker-1", Label: "Worker 1", Mode: "push", Replicas: []string{"r1", "r2"}},
					{ID: "gateway", Mode: "local"},
				},
				Grids: []GridConfig{
					{
						Mode:       "push",
						IDTemplate: "edge-{{.region}}",
						Label:      "Edge",
						Dimensions: map[string][]string{"region": {"eu", "us"}},
					},
				},
			},
		},
	}

	probes, err := BuildProbes(cfg)
	if err != nil {
		t.Fatalf("BuildProbes() error = %v", err)
	}
	if len(probes) != 1 {
		t.Fatalf("len(probes) = %d, want 1", len(probes))
	}

	p := probes[0]
	if p.ID() != "api" || p.Label() != "Public API" {
		t.Errorf("probe = %s/%s, want api/Public API", p.ID(), p.Label())
	}

	nodes := p.Nodes()
	gotIDs := make([]string, len(nodes))
	for i, n := range nodes {
		gotIDs[i] = n.ID()
	}
	wantIDs := []string{"worker-1", "gateway", "edge-eu", "edge-us"}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("node ids = %v, want %v", gotIDs, wantIDs)
	}

	if nodes[0].Label() != "Worker 1" || !reflect.DeepEqual(nodes[0].Replicas(), []string{"r1", "r2"}) {
		t.Errorf("nodes[0] = %s %v", nodes[0].Label(), nodes[0].Replicas())
	}
	if nodes[1].Mode() != beacon.ModeLocal {
		t.Errorf("nodes[1].Mode() = %q, want %q", nodes[1].Mode(), beacon.ModeLocal)
	}
	if nodes[2].Label() != "Edge (eu)" {
		t.Errorf("nodes[2].Label() = %q, want %q", nodes[2].Label(), "Edge (eu)")
	}
}

func TestBuildProbes_GridCollidesWithNode(t *testing.T) {
	cfg := &Config{
		Probes: []ProbeConfig{
			{
				ID:    "api",
				Nodes: []NodeConfig{{ID: "edge-eu", Mode: "push"}},
				Grids: []GridConfig{
					{Mode: "push", IDTemplate: "edge-{{.region}}", Dimensions: map[string][]string{"region": {"eu"}}},
				},
			},
		},
	}

	_, err := BuildProbes(cfg)
	if err == nil {
		t.Fatal("BuildProbes() expected error for duplicate node id, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate node id") {
		t.Errorf("error = %v, want duplicate node id", err)
	}
}

func TestBuildProbes_GridTemplateExecutionError(t *testing.T) {
	cfg := &Config{
		Probes: []ProbeConfig{
			{
				ID: "api",
				Grids: []GridConfig{
					{Mode: "push", IDTemplate: "edge-{{.zone}}", Dimensions: map[string][]string{"region": {"eu"}}},
				},
			},
		},
	}

	_, err := BuildProbes(cfg)
	if err == nil {
		t.Fatal("BuildProbes() expected error for missing template key, got nil")
	}
	if !strings.Contains(err.Error(), "probes[0] (api).grids[0]") {
		t.Errorf("error should carry the config path: %v", err)
	}
}

func TestBuildThresholds_OverlaysDefaults(t *testing.T) {
	th := buildThresholds(ThresholdsConfig{
		CPUSickAbove:  0.5,
		PushDeadDelay: Duration(time.Minute),
	})

	want := beacon.DefaultThresholds()
	want.CPUSickAbove = 0.5
	want.PushDeadDelay = time.Minute

	if th != want {
		t.Errorf("buildThresholds() = %+v, want %+v", th, want)
	}
}

func TestBuild_CreatesBeacon(t *testing.T) {
	yaml := `
title: Acme Status
port: 9191
refresh_interval: 3s
auth:
  reporter_token: secret
plugins:
  max_concurrency: 2
  webhooks:
    - name: ops
      url: https://hooks.example.com/load
probes:
  - id: api
    nodes:
      - id: worker-1
        mode: push
  - id: db
    nodes:
      - id: primary
        mode: local
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	opts = append(opts, beacon.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	b, err := beacon.New(opts...)
	if err != nil {
		t.Fatalf("beacon.New() error = %v", err)
	}

	if b.Port() != 9191 {
		t.Errorf("Port() = %d, want 9191", b.Port())
	}
	if b.Title() != "Acme Status" {
		t.Errorf("Title() = %q, want %q", b.Title(), "Acme Status")
	}
	if b.RefreshInterval() != 3*time.Second {
		t.Errorf("RefreshInterval() = %v, want 3s", b.RefreshInterval())
	}
	if len(b.Probes()) != 2 {
		t.Errorf("len(Probes()) = %d, want 2", len(b.Probes()))
	}
}
