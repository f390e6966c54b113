package beacon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jpalmerr/beacon/internal/registry"
)

// Node is one reporting endpoint of a [Probe].
//
// Node is immutable after creation via [PushNode] or [LocalNode]. Getters
// return copies of mutable data.
type Node struct {
	id       string
	label    string
	mode     Mode
	replicas []string
}

// ID returns the node id, unique within its probe.
func (n Node) ID() string {
	return n.id
}

// Label returns the display label. Defaults to the id.
func (n Node) Label() string {
	return n.label
}

// Mode returns the reporting mode.
func (n Node) Mode() Mode {
	return n.mode
}

// Replicas returns a copy of the declared replica ids.
func (n Node) Replicas() []string {
	if n.replicas == nil {
		return nil
	}
	return append([]string(nil), n.replicas...)
}

// NodeOption configures a [Node] during construction.
type NodeOption func(*Node) error

// WithNodeLabel sets the display label of a node.
func WithNodeLabel(label string) NodeOption {
	return func(n *Node) error {
		n.label = label
		return nil
	}
}

// WithReplicas declares replica ids up front.
//
// Declared replicas can be flushed before they ever report. Replicas that
// are not declared are created on their first report.
//
// Returns an error if an id is empty or repeated.
func WithReplicas(ids ...string) NodeOption {
	return func(n *Node) error {
		for _, id := range ids {
			if id == "" {
				return errors.New("replica id cannot be empty")
			}
			if strings.Contains(id, "/") {
				return fmt.Errorf("replica id %q cannot contain '/'", id)
			}
			for _, existing := range n.replicas {
				if existing == id {
					return fmt.Errorf("duplicate replica id: %q", id)
				}
			}
			n.replicas = append(n.replicas, id)
		}
		return nil
	}
}

// PushNode creates a node whose replicas push load reports.
//
// Example:
//
//	worker, err := beacon.PushNode("worker-1", beacon.WithReplicas("r1", "r2"))
func PushNode(id string, opts ...NodeOption) (Node, error) {
	return newNode(id, ModePush, opts)
}

// LocalNode creates a node whose health is asserted by a local agent.
func LocalNode(id string, opts ...NodeOption) (Node, error) {
	return newNode(id, ModeLocal, opts)
}

func newNode(id string, mode Mode, opts []NodeOption) (Node, error) {
	if id == "" {
		return Node{}, errors.New("node id cannot be empty")
	}
	// ids are URL path segments of the reporter routes
	if strings.Contains(id, "/") {
		return Node{}, fmt.Errorf("node id %q cannot contain '/'", id)
	}

	n := Node{id: id, label: id, mode: mode}
	for _, opt := range opts {
		if err := opt(&n); err != nil {
			return Node{}, fmt.Errorf("node %q: %w", id, err)
		}
	}
	return n, nil
}

// Probe is a monitored service made of one or more nodes.
//
// Probe is immutable after creation via [NewProbe].
type Probe struct {
	id    string
	label string
	nodes []Node
}

// ID returns the probe id.
func (p Probe) ID() string {
	return p.id
}

// Label returns the display label. Defaults to the id.
func (p Probe) Label() string {
	return p.label
}

// Nodes returns a copy of the probe's nodes.
func (p Probe) Nodes() []Node {
	cp := make([]Node, len(p.nodes))
	copy(cp, p.nodes)
	return cp
}

// ProbeOption configures a [Probe] during construction.
type ProbeOption func(*Probe) error

// WithProbeLabel sets the display label of a probe.
func WithProbeLabel(label string) ProbeOption {
	return func(p *Probe) error {
		p.label = label
		return nil
	}
}

// NewProbe creates a [Probe] from its nodes.
//
// Returns an error if the id is empty, no node is given or node ids repeat.
//
// Example:
//
//	worker, _ := beacon.PushNode("worker-1")
//	gateway, _ := beacon.LocalNode("gateway")
//	api, err := beacon.NewProbe("api", []beacon.Node{worker, gateway},
//	    beacon.WithProbeLabel("Public API"),
//	)
func NewProbe(id string, nodes []Node, opts ...ProbeOption) (Probe, error) {
	if id == "" {
		return Probe{}, errors.New("probe id cannot be empty")
	}
	if strings.Contains(id, "/") {
		return Probe{}, fmt.Errorf("probe id %q cannot contain '/'", id)
	}
	if len(nodes) == 0 {
		return Probe{}, fmt.Errorf("probe %q: at least one node is required", id)
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.id == "" {
			return Probe{}, fmt.Errorf("probe %q: node was not created with PushNode or LocalNode", id)
		}
		if seen[n.id] {
			return Probe{}, fmt.Errorf("probe %q: duplicate node id: %q", id, n.id)
		}
		seen[n.id] = true
	}

	p := Probe{id: id, label: id}
	p.nodes = make([]Node, len(nodes))
	copy(p.nodes, nodes)

	for _, opt := range opts {
		if err := opt(&p); err != nil {
			return Probe{}, fmt.Errorf("probe %q: %w", id, err)
		}
	}
	return p, nil
}

// toRegistry converts the probe into its registry form.
func (p Probe) toRegistry() registry.Probe {
	rp := registry.Probe{
		ID:    p.id,
		Label: p.label,
		Nodes: make([]registry.Node, len(p.nodes)),
	}
	for i, n := range p.nodes {
		rp.Nodes[i] = registry.Node{
			ID:       n.id,
			Label:    n.label,
			Mode:     n.mode,
			Replicas: n.Replicas(),
		}
	}
	return rp
}
