// Package metrics exposes Prometheus instruments for report handling,
// plugin dispatch and derived statuses.
//
// Instruments are registered on a caller-supplied [prometheus.Registerer] so
// that several instances can live in one process (and in tests).
package metrics
