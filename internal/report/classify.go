package report

import (
	"fmt"
	"math"

	"github.com/jpalmerr/beacon/internal/registry"
)

// NodeFinder looks up registered nodes. [registry.Registry] implements it.
type NodeFinder interface {
	FindNode(probeID, nodeID string) (registry.Node, bool)
}

// Classify decides whether a report may be applied to the given node.
//
// Checks run in order: unknown probe or node ([ErrNotFound]), report kind not
// allowed for the node's mode ([ErrWrongMode]), invalid values
// ([ErrInvalidLoad] for load reports, [ErrMalformed] for health reports).
// Classify performs no mutation.
func Classify(reg NodeFinder, probeID, nodeID string, rep Report) (registry.Node, error) {
	node, ok := reg.FindNode(probeID, nodeID)
	if !ok {
		return registry.Node{}, fmt.Errorf("probe %q node %q: %w", probeID, nodeID, ErrNotFound)
	}

	switch r := rep.(type) {
	case LoadReport:
		if node.Mode != registry.ModePush {
			return node, fmt.Errorf("load report for %s node %s/%s: %w", node.Mode, probeID, nodeID, ErrWrongMode)
		}
		if err := validateLoad(r); err != nil {
			return node, fmt.Errorf("probe %q node %q: %w", probeID, nodeID, err)
		}

	case HealthReport:
		if node.Mode != registry.ModeLocal {
			return node, fmt.Errorf("health report for %s node %s/%s: %w", node.Mode, probeID, nodeID, ErrWrongMode)
		}
		if r.Replica == "" || r.Interval <= 0 {
			return node, fmt.Errorf("probe %q node %q: %w: replica and interval are required", probeID, nodeID, ErrMalformed)
		}

	default:
		return node, fmt.Errorf("probe %q node %q: %w", probeID, nodeID, ErrMalformed)
	}

	return node, nil
}

// ClassifyFlush checks that a flush targets a registered node.
//
// Flush is allowed for every mode. Replica existence is checked against the
// store when the flush is applied.
func ClassifyFlush(reg NodeFinder, probeID, nodeID, replicaID string) (registry.Node, error) {
	node, ok := reg.FindNode(probeID, nodeID)
	if !ok || replicaID == "" {
		return registry.Node{}, fmt.Errorf("probe %q node %q replica %q: %w", probeID, nodeID, replicaID, ErrNotFound)
	}
	return node, nil
}

func validateLoad(r LoadReport) error {
	switch {
	case r.Replica == "":
		return fmt.Errorf("%w: replica is required", ErrInvalidLoad)
	case r.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalidLoad)
	case !validMetric(r.CPU):
		return fmt.Errorf("%w: cpu must be a non-negative number, got %v", ErrInvalidLoad, r.CPU)
	case !validMetric(r.RAM):
		return fmt.Errorf("%w: ram must be a non-negative number, got %v", ErrInvalidLoad, r.RAM)
	}
	return nil
}

func validMetric(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
