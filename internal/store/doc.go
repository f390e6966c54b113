// Package store holds the mutable runtime state of every monitored probe.
//
// This package is internal to Beacon. It owns the per-replica report data,
// the derived health of every node and probe, the overall system status and
// the set of administratively disabled probes.
//
// The main components are:
//
//   - [Store]: Interface defining snapshot, mutation and subscription operations
//   - [MemoryStore]: In-memory implementation guarded by a single RWMutex
//   - [States]: The aggregate mutated inside [MemoryStore.WithWrite]
//   - [StatesView]: The read-only copy handed to dashboards and the API
//
// Critical sections only copy or mutate in-memory data. Subscribers are
// notified after the lock is released, with non-blocking sends (slow
// subscribers will miss updates rather than block writers).
package store
