package store

import (
	"fmt"
	"time"

	"github.com/jpalmerr/beacon/internal/registry"
)

// Status is the derived health of a replica, node, probe or the whole system.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusSick    Status = "sick"
	StatusDead    Status = "dead"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Severity orders statuses from best (0) to worst (2).
func (s Status) Severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusSick:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// ParseStatus converts a reported health value into a [Status].
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusHealthy, StatusSick, StatusDead:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown health %q (expected 'healthy', 'sick' or 'dead')", s)
	}
}

// Load is the system load last pushed by a replica.
type Load struct {
	CPU float64 `json:"cpu"`
	RAM float64 `json:"ram"`
}

// Thresholds controls how replica reports are turned into a [Status].
type Thresholds struct {
	// CPUSickAbove marks a push replica sick when its cpu load exceeds it.
	CPUSickAbove float64
	// RAMSickAbove marks a push replica sick when its ram load exceeds it.
	RAMSickAbove float64
	// PushDeadDelay is the grace period after a push replica's interval
	// elapses before it is considered dead.
	PushDeadDelay time.Duration
	// LocalDeadDelay is the same grace period for local replicas.
	LocalDeadDelay time.Duration
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUSickAbove:   0.90,
		RAMSickAbove:   0.90,
		PushDeadDelay:  20 * time.Second,
		LocalDeadDelay: 40 * time.Second,
	}
}

// ReplicaView is the read-only state of a single replica.
type ReplicaView struct {
	ID              string        `json:"id"`
	Status          Status        `json:"status"`
	ReportedAt      *time.Time    `json:"reported_at"`
	Interval        time.Duration `json:"-"`
	IntervalSeconds int64         `json:"interval"`
	Load            *Load         `json:"load,omitempty"`
	Health          Status        `json:"health,omitempty"`
	Generation      uint64        `json:"generation"`
}

// NodeView is the read-only state of a node and its replicas.
type NodeView struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Mode     registry.Mode `json:"mode"`
	Status   Status        `json:"status"`
	Replicas []ReplicaView `json:"replicas"`
}

// ProbeView is the read-only state of a probe.
type ProbeView struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Status   Status     `json:"status"`
	Disabled bool       `json:"disabled"`
	Nodes    []NodeView `json:"nodes"`
}

// StatesView is a consistent copy of the whole store.
//
// Probes and nodes keep their registry order; replicas are sorted by id.
type StatesView struct {
	Status   Status      `json:"status"`
	Probes   []ProbeView `json:"probes"`
	Disabled []string    `json:"disabled"`
}

// Probe returns the view of a single probe.
func (v StatesView) Probe(id string) (ProbeView, bool) {
	for _, p := range v.Probes {
		if p.ID == id {
			return p, true
		}
	}
	return ProbeView{}, false
}

// Replica returns the view of a single replica.
func (v StatesView) Replica(probeID, nodeID, replicaID string) (ReplicaView, bool) {
	p, ok := v.Probe(probeID)
	if !ok {
		return ReplicaView{}, false
	}
	for _, n := range p.Nodes {
		if n.ID != nodeID {
			continue
		}
		for _, r := range n.Replicas {
			if r.ID == replicaID {
				return r, true
			}
		}
	}
	return ReplicaView{}, false
}

// ProbeUpdate is published to subscribers for every probe touched by a write.
type ProbeUpdate struct {
	// Status is the overall system status after the write.
	Status Status `json:"status"`
	// Probe is the state of the touched probe after the write.
	Probe ProbeView `json:"probe"`
}

// ToggleResult is the outcome of an administrative enable/disable request.
//
// A failed toggle is informational: OK is false and Message explains why.
type ToggleResult struct {
	OK       bool     `json:"ok"`
	Message  string   `json:"message"`
	Disabled []string `json:"disabled"`
}

// Store defines the operations shared by report handling and readers.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Snapshot returns a consistent copy of all state.
	Snapshot() StatesView
	// Status returns the overall status without copying probe detail.
	Status() Status
	// Generation returns the flush generation of a replica (0 if unknown).
	Generation(probeID, nodeID, replicaID string) uint64
	// WithWrite runs fn with exclusive access to the states.
	WithWrite(fn func(*States) error) error
	// Refresh recomputes every derived status at the given time.
	Refresh(now time.Time)
	// Disable excludes a probe from the overall status.
	Disable(probeID string) ToggleResult
	// Enable includes a previously disabled probe again.
	Enable(probeID string) ToggleResult
	// Subscribe returns a channel receiving probe updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan ProbeUpdate
	// Unsubscribe removes a subscription and closes the channel.
	Unsubscribe(ch <-chan ProbeUpdate)
}
