// Package dashboard provides the embedded web UI for Beacon.
//
// The page loads the current state from /api/sse and keeps itself up to
// date from the same stream. Assets are compiled into the binary.
package dashboard

import "embed"

// Assets holds assets/index.html, a single page with inline CSS and
// JavaScript. The {{.Title}} marker is replaced by the server.
//
//go:embed assets/*
var Assets embed.FS
