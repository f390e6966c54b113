package beacon

import (
	"time"

	"github.com/jpalmerr/beacon/internal/registry"
	"github.com/jpalmerr/beacon/internal/report"
	"github.com/jpalmerr/beacon/internal/store"
)

// Status is the derived health of a replica, node, probe or the whole system.
//
// Status holds one of [StatusHealthy], [StatusSick] or [StatusDead]. Statuses
// are ordered by severity; a node, probe or the overall status takes the
// worst status of what it aggregates.
type Status = store.Status

const (
	// StatusHealthy means every live report is within thresholds.
	StatusHealthy = store.StatusHealthy

	// StatusSick means a load exceeded a threshold or a local node reported sick.
	StatusSick = store.StatusSick

	// StatusDead means no replica reported within its interval plus grace delay.
	StatusDead = store.StatusDead
)

// Mode is the reporting mode of a node.
type Mode = registry.Mode

const (
	// ModePush nodes push periodic load metrics themselves.
	ModePush = registry.ModePush

	// ModeLocal nodes have their health asserted locally and forwarded.
	ModeLocal = registry.ModeLocal
)

// Thresholds controls how reports are turned into a [Status].
type Thresholds = store.Thresholds

// DefaultThresholds returns the thresholds used when [WithThresholds] is not set:
// sick above 0.90 cpu or ram, dead 20s (push) or 40s (local) after the
// reported interval elapsed.
func DefaultThresholds() Thresholds {
	return store.DefaultThresholds()
}

// Read-only views of the current state, as returned by [Beacon.Snapshot]
// and served on /api/status.
type (
	StatesView   = store.StatesView
	ProbeView    = store.ProbeView
	NodeView     = store.NodeView
	ReplicaView  = store.ReplicaView
	ToggleResult = store.ToggleResult
)

// LoadEvent is handed to load callbacks after a load report is applied.
//
// LoadEvent is a copy; callbacks may keep it.
type LoadEvent struct {
	// Probe, Node and Replica identify the reporting replica.
	Probe   string
	Node    string
	Replica string

	// CPU and RAM are the reported loads.
	CPU float64
	RAM float64

	// Interval is the announced time until the next report.
	Interval time.Duration

	// ReportedAt is the time the report was received.
	ReportedAt time.Time

	// Status is the replica status derived from this report.
	Status Status
}

func newLoadEvent(fv report.ForwardValue) LoadEvent {
	return LoadEvent{
		Probe:      fv.ProbeID,
		Node:       fv.NodeID,
		Replica:    fv.ReplicaID,
		CPU:        fv.CPU,
		RAM:        fv.RAM,
		Interval:   fv.Interval,
		ReportedAt: fv.ReportedAt,
		Status:     fv.Status,
	}
}
