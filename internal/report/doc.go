// Package report classifies inbound node reports and applies them to the store.
//
// Handling a report is split in three steps:
//
//   - [Decode] turns a request body into a [Report]: either a [LoadReport] or
//     a [HealthReport], never both.
//   - [Classify] checks the report against the registry: unknown probe or
//     node, report kind not allowed for the node's mode, invalid values.
//     It is pure and runs without any store lock.
//   - [Service.Apply] mutates the store under its write lock and, for load
//     reports, hands a [ForwardValue] to the plugin dispatcher once the lock
//     is released.
//
// Every report captures the replica's flush generation before the write lock
// is taken. A flush that lands in between bumps the generation and the
// report is dropped instead of resurrecting flushed data.
package report
