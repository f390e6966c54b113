package report

import (
	"fmt"
	"time"

	"github.com/jpalmerr/beacon/internal/registry"
	"github.com/jpalmerr/beacon/internal/store"
)

// ForwardValue is handed to plugin dispatch after a load report is applied.
type ForwardValue struct {
	ProbeID   string        `json:"probe"`
	NodeID    string        `json:"node"`
	ReplicaID string        `json:"replica"`
	CPU       float64       `json:"cpu"`
	RAM       float64       `json:"ram"`
	Interval  time.Duration `json:"-"`
	// IntervalSeconds mirrors Interval for JSON consumers.
	IntervalSeconds int64     `json:"interval"`
	ReportedAt      time.Time `json:"reported_at"`
	// Status is the replica status derived from this report.
	Status store.Status `json:"status"`
}

// Ticket is a classified report waiting to be applied.
//
// Generation is the replica's flush generation observed before the write
// lock was taken.
type Ticket struct {
	ProbeID    string
	NodeID     string
	Report     Report
	Generation uint64
}

// Receipt describes what happened to an accepted report.
type Receipt struct {
	// Applied is false when a flush superseded the report.
	Applied bool
	// Forward is set for applied load reports.
	Forward *ForwardValue
}

// apply writes a ticket into the states. Caller holds the write lock.
func apply(s *store.States, t Ticket, now time.Time) (Receipt, error) {
	r, ok := s.EnsureReplica(t.ProbeID, t.NodeID, t.Report.ReplicaID())
	if !ok {
		return Receipt{}, fmt.Errorf("probe %q node %q: %w", t.ProbeID, t.NodeID, ErrNotFound)
	}
	if t.Generation < r.Generation {
		return Receipt{Applied: false}, nil
	}

	r.ReportedAt = now
	r.Interval = t.Report.ReportInterval()

	switch rep := t.Report.(type) {
	case LoadReport:
		r.Load = &store.Load{CPU: rep.CPU, RAM: rep.RAM}
		r.Health = ""
		s.RecomputeNode(t.ProbeID, t.NodeID, now)

		return Receipt{
			Applied: true,
			Forward: &ForwardValue{
				ProbeID:         t.ProbeID,
				NodeID:          t.NodeID,
				ReplicaID:       rep.Replica,
				CPU:             rep.CPU,
				RAM:             rep.RAM,
				Interval:        rep.Interval,
				IntervalSeconds: int64(rep.Interval / time.Second),
				ReportedAt:      now,
				Status:          r.Status,
			},
		}, nil

	case HealthReport:
		r.Load = nil
		r.Health = rep.Health
		s.RecomputeNode(t.ProbeID, t.NodeID, now)
		return Receipt{Applied: true}, nil

	default:
		return Receipt{}, ErrMalformed
	}
}

// applyFlush resets a replica. Caller holds the write lock.
//
// The replica must be declared in the registry or already known to the store.
func applyFlush(s *store.States, node registry.Node, probeID, replicaID string, now time.Time) error {
	if _, ok := s.Replica(probeID, node.ID, replicaID); !ok && !node.HasReplica(replicaID) {
		return fmt.Errorf("probe %q node %q replica %q: %w", probeID, node.ID, replicaID, ErrNotFound)
	}

	r, ok := s.EnsureReplica(probeID, node.ID, replicaID)
	if !ok {
		return fmt.Errorf("probe %q node %q: %w", probeID, node.ID, ErrNotFound)
	}
	r.Reset()
	s.RecomputeNode(probeID, node.ID, now)
	return nil
}
