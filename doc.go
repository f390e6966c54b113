// Package beacon provides an embeddable status page service that ingests
// reports from the systems it watches.
//
// Beacon does not poll. Probes are made of nodes, and each node reports to
// Beacon over HTTP: push nodes send periodic cpu/ram load, local nodes send
// a health verdict produced by a local agent. Beacon derives a status for
// every replica, node and probe and for the whole system, and serves it as a
// dashboard, a JSON API, an SSE stream, a plain text endpoint and SVG badges.
//
// # Quick Start
//
//	worker, _ := beacon.PushNode("worker-1", beacon.WithReplicas("r1", "r2"))
//	gateway, _ := beacon.LocalNode("gateway")
//	api, _ := beacon.NewProbe("api", []beacon.Node{worker, gateway})
//
//	b, _ := beacon.New(beacon.WithProbe(api), beacon.WithReporterToken("s3cret"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// A replica of worker-1 then reports with:
//
//	curl -u :s3cret -d '{"replica":"r1","interval":10,"load":{"cpu":0.4,"ram":0.7}}' \
//	    http://localhost:8080/reporter/api/worker-1
//
// # Status
//
// A push replica is [StatusSick] while its cpu or ram is above the
// thresholds, a local replica takes the health it reported. A replica that
// stays silent longer than its announced interval plus a grace delay is
// [StatusDead], and so is a node with no live replica. Disabled probes are
// shown but excluded from the overall status.
//
// # Plugins
//
// Every applied load report is forwarded to webhooks ([WithWebhook]) and
// load callbacks ([WithLoadCallback]) on a bounded worker pool. Plugins
// never slow down or fail report handling.
//
// # Architecture
//
// Beacon consists of several internal packages (under internal/):
//
//   - internal/registry: Immutable probe and node definitions
//   - internal/store: In-memory state with pub/sub for real-time updates
//   - internal/report: Report decoding, classification and application
//   - internal/plugin: Bounded dispatch of forward values to webhooks and callbacks
//   - internal/sweeper: Periodic re-evaluation of silent replicas
//   - internal/metrics: Prometheus metrics
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package beacon
