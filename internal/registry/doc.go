// Package registry holds the static definition of monitored probes.
//
// A [Registry] is built once at startup from configuration and never mutated
// afterwards, so it can be read from any goroutine without locking. Every
// probe owns an ordered list of nodes, and every node declares the [Mode]
// it reports in for its whole lifetime.
//
// Users of the beacon library should not need to interact with this package
// directly. Probes are declared with [beacon.NewProbe].
package registry
