package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/beacon"
)

const reporterToken = "demo-token"

func main() {
	// grid API: 2 regions × 2 slots = 4 push nodes from one declaration
	workers, err := beacon.NewNodeGrid(beacon.ModePush,
		beacon.WithIDTemplate("worker-{{.region}}-{{.slot}}"),
		beacon.WithDimensions(map[string][]string{
			"region": {"eu", "us"},
			"slot":   {"1", "2"},
		}),
		beacon.WithGridLabel("Worker"),
	)
	if err != nil {
		slog.Error("failed to create node grid", "error", err)
		os.Exit(1)
	}

	gateway, _ := beacon.LocalNode("gateway", beacon.WithNodeLabel("Gateway"))
	api, err := beacon.NewProbe("api", append(workers, gateway), beacon.WithProbeLabel("Public API"))
	if err != nil {
		slog.Error("failed to create probe", "error", err)
		os.Exit(1)
	}

	primary, _ := beacon.LocalNode("primary")
	db, _ := beacon.NewProbe("db", []beacon.Node{primary}, beacon.WithProbeLabel("Database"))

	b, err := beacon.New(
		beacon.WithProbes(api, db),
		beacon.WithTitle("Beacon Demo"),
		beacon.WithPort(8080),
		beacon.WithReporterToken(reporterToken),
		beacon.WithRefreshInterval(2*time.Second),
		beacon.WithLoadCallback(func(ev beacon.LoadEvent) {
			if ev.Status == beacon.StatusSick {
				slog.Warn("replica overloaded", "node", ev.Node, "replica", ev.Replica, "cpu", ev.CPU, "ram", ev.RAM)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create beacon", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Beacon Demo                                         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Probes:                                             ║")
	fmt.Println("  ║   • api: 4 push workers (Grid) + 1 local gateway      ║")
	fmt.Println("  ║   • db:  1 local primary                              ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// simulated reporters (see mock_reporter.go)
	targets := []MockTarget{{Probe: "api", Node: "gateway", Local: true}, {Probe: "db", Node: "primary", Local: true}}
	for _, w := range workers {
		targets = append(targets,
			MockTarget{Probe: "api", Node: w.ID(), Replica: "r1"},
			MockTarget{Probe: "api", Node: w.ID(), Replica: "r2"},
		)
	}
	go StartMockReporters(ctx, "http://localhost:8080", reporterToken, targets)

	if err := b.Start(ctx); err != nil {
		slog.Error("beacon error", "error", err)
		os.Exit(1)
	}
}
