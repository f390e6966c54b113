package registry

import (
	"errors"
	"fmt"
)

// Mode is the reporting mode of a node.
type Mode string

const (
	// ModePush nodes push periodic load metrics themselves.
	ModePush Mode = "push"
	// ModeLocal nodes have their health asserted locally and forwarded.
	ModeLocal Mode = "local"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a configuration string into a [Mode].
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePush, ModeLocal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown node mode %q (expected 'push' or 'local')", s)
	}
}

// Node is one reporting endpoint of a probe.
type Node struct {
	ID       string
	Label    string
	Mode     Mode
	Replicas []string
}

// HasReplica reports whether the replica id was declared for the node.
func (n Node) HasReplica(id string) bool {
	for _, r := range n.Replicas {
		if r == id {
			return true
		}
	}
	return false
}

// Probe is a monitored service made of one or more nodes.
type Probe struct {
	ID    string
	Label string
	Nodes []Node
}

// Registry is the immutable set of known probes.
type Registry struct {
	probes []Probe
	index  map[string]int
}

// New validates the probe definitions and builds a [Registry].
//
// Probe ids must be unique, every probe needs at least one node, node ids
// must be unique within their probe and every node needs a valid mode.
// The input slices are copied.
func New(probes []Probe) (*Registry, error) {
	if len(probes) == 0 {
		return nil, errors.New("at least one probe is required")
	}

	r := &Registry{
		probes: make([]Probe, 0, len(probes)),
		index:  make(map[string]int, len(probes)),
	}

	for i, p := range probes {
		if p.ID == "" {
			return nil, fmt.Errorf("probes[%d]: id is required", i)
		}
		if _, dup := r.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate probe id: %q", p.ID)
		}
		if len(p.Nodes) == 0 {
			return nil, fmt.Errorf("probe %q: at least one node is required", p.ID)
		}

		nodes := make([]Node, 0, len(p.Nodes))
		seen := make(map[string]struct{}, len(p.Nodes))
		for j, n := range p.Nodes {
			if n.ID == "" {
				return nil, fmt.Errorf("probe %q: nodes[%d]: id is required", p.ID, j)
			}
			if _, dup := seen[n.ID]; dup {
				return nil, fmt.Errorf("probe %q: duplicate node id: %q", p.ID, n.ID)
			}
			seen[n.ID] = struct{}{}

			if _, err := ParseMode(string(n.Mode)); err != nil {
				return nil, fmt.Errorf("probe %q: node %q: %w", p.ID, n.ID, err)
			}

			n.Replicas = append([]string(nil), n.Replicas...)
			if n.Label == "" {
				n.Label = n.ID
			}
			nodes = append(nodes, n)
		}

		p.Nodes = nodes
		if p.Label == "" {
			p.Label = p.ID
		}
		r.index[p.ID] = len(r.probes)
		r.probes = append(r.probes, p)
	}

	return r, nil
}

// Probes returns the probes in declaration order.
// The returned slice is a copy; nodes are shared and must not be modified.
func (r *Registry) Probes() []Probe {
	cp := make([]Probe, len(r.probes))
	copy(cp, r.probes)
	return cp
}

// FindProbe looks up a probe by id.
func (r *Registry) FindProbe(probeID string) (Probe, bool) {
	i, ok := r.index[probeID]
	if !ok {
		return Probe{}, false
	}
	return r.probes[i], true
}

// FindNode looks up a node by probe and node id.
func (r *Registry) FindNode(probeID, nodeID string) (Node, bool) {
	p, ok := r.FindProbe(probeID)
	if !ok {
		return Node{}, false
	}
	for _, n := range p.Nodes {
		if n.ID == nodeID {
			return n, true
		}
	}
	return Node{}, false
}
