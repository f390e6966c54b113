// Package sweeper periodically re-derives statuses so that replicas which
// stop reporting turn dead without waiting for another report.
package sweeper
