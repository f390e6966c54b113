// Package server provides the HTTP layer for Beacon.
//
// Routes:
//
//   - GET /: embedded dashboard
//   - GET /status/text: overall status as plain text
//   - GET /badge/{kind}: SVG badge for the overall status
//   - GET /api/status: JSON snapshot of every probe
//   - GET /api/sse: Server-Sent Events stream of probe updates
//   - POST /reporter/{probe}/{node}: submit a load or health report
//   - DELETE /reporter/{probe}/{node}/{replica}: flush a replica
//   - POST /manager/probes/{probe}/disable and /enable: admin toggle
//   - GET /metrics: Prometheus exposition
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
