package store

import (
	"sort"
	"time"

	"github.com/jpalmerr/beacon/internal/registry"
)

// ReplicaState is the last report received from one replica.
//
// A replica with a zero ReportedAt has no live data: it was never reported
// or it was flushed. Generation is bumped by every flush and never reset.
type ReplicaState struct {
	ReportedAt time.Time
	Interval   time.Duration
	Load       *Load
	Health     Status
	Generation uint64
	Status     Status
}

// Live reports whether the replica holds report data.
func (r *ReplicaState) Live() bool {
	return !r.ReportedAt.IsZero()
}

// Reset clears the report data and starts a new generation.
func (r *ReplicaState) Reset() {
	r.ReportedAt = time.Time{}
	r.Interval = 0
	r.Load = nil
	r.Health = ""
	r.Status = ""
	r.Generation++
}

// NodeState is the runtime state of a registry node.
type NodeState struct {
	ID       string
	Label    string
	Mode     registry.Mode
	Status   Status
	Replicas map[string]*ReplicaState
}

// ProbeState is the runtime state of a registry probe.
type ProbeState struct {
	ID     string
	Label  string
	Status Status
	Nodes  []*NodeState
}

// Node returns the node with the given id.
func (p *ProbeState) Node(id string) (*NodeState, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// States is the aggregate guarded by [MemoryStore].
//
// States must only be accessed inside [MemoryStore.WithWrite] or through the
// store's read methods.
type States struct {
	Status     Status
	Probes     []*ProbeState
	Disabled   map[string]struct{}
	Thresholds Thresholds

	probeIndex map[string]int
	dirty      map[string]struct{}
}

// NewStates builds the initial states for every probe of the registry.
// Nodes start without replicas and are therefore dead until they report.
func NewStates(reg *registry.Registry, th Thresholds) *States {
	probes := reg.Probes()
	s := &States{
		Probes:     make([]*ProbeState, 0, len(probes)),
		Disabled:   make(map[string]struct{}),
		Thresholds: th,
		probeIndex: make(map[string]int, len(probes)),
		dirty:      make(map[string]struct{}),
	}

	for _, p := range probes {
		ps := &ProbeState{ID: p.ID, Label: p.Label, Nodes: make([]*NodeState, 0, len(p.Nodes))}
		for _, n := range p.Nodes {
			ps.Nodes = append(ps.Nodes, &NodeState{
				ID:       n.ID,
				Label:    n.Label,
				Mode:     n.Mode,
				Replicas: make(map[string]*ReplicaState),
			})
		}
		s.probeIndex[p.ID] = len(s.Probes)
		s.Probes = append(s.Probes, ps)
	}

	s.RecomputeAll(time.Now())
	s.dirty = make(map[string]struct{})
	return s
}

// Probe returns the probe with the given id.
func (s *States) Probe(id string) (*ProbeState, bool) {
	i, ok := s.probeIndex[id]
	if !ok {
		return nil, false
	}
	return s.Probes[i], true
}

// Node returns the node with the given probe and node id.
func (s *States) Node(probeID, nodeID string) (*NodeState, bool) {
	p, ok := s.Probe(probeID)
	if !ok {
		return nil, false
	}
	return p.Node(nodeID)
}

// Replica returns an existing replica state.
func (s *States) Replica(probeID, nodeID, replicaID string) (*ReplicaState, bool) {
	n, ok := s.Node(probeID, nodeID)
	if !ok {
		return nil, false
	}
	r, ok := n.Replicas[replicaID]
	return r, ok
}

// EnsureReplica returns the replica state, creating it on first use.
// It returns false only when the probe or node is unknown.
func (s *States) EnsureReplica(probeID, nodeID, replicaID string) (*ReplicaState, bool) {
	n, ok := s.Node(probeID, nodeID)
	if !ok {
		return nil, false
	}
	r, ok := n.Replicas[replicaID]
	if !ok {
		r = &ReplicaState{}
		n.Replicas[replicaID] = r
	}
	return r, true
}

// IsDisabled reports whether the probe is excluded from the overall status.
func (s *States) IsDisabled(probeID string) bool {
	_, ok := s.Disabled[probeID]
	return ok
}

// DisabledIDs returns the disabled probe ids, sorted.
func (s *States) DisabledIDs() []string {
	ids := make([]string, 0, len(s.Disabled))
	for id := range s.Disabled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Touch marks a probe as changed so subscribers are notified once the
// current write completes.
func (s *States) Touch(probeID string) {
	s.dirty[probeID] = struct{}{}
}

// RecomputeNode re-derives the status of one node, its probe and the
// overall status, and marks the probe as changed.
func (s *States) RecomputeNode(probeID, nodeID string, now time.Time) {
	p, ok := s.Probe(probeID)
	if !ok {
		return
	}
	n, ok := p.Node(nodeID)
	if !ok {
		return
	}
	s.recomputeNode(n, now)
	s.recomputeProbe(p)
	s.RecomputeOverall()
	s.Touch(probeID)
}

// RecomputeAll re-derives every status. Probes whose status changed are
// marked as changed.
func (s *States) RecomputeAll(now time.Time) {
	for _, p := range s.Probes {
		before := p.Status
		nodesBefore := make([]Status, len(p.Nodes))
		for i, n := range p.Nodes {
			nodesBefore[i] = n.Status
			s.recomputeNode(n, now)
		}
		s.recomputeProbe(p)

		changed := before != p.Status
		for i, n := range p.Nodes {
			if nodesBefore[i] != n.Status {
				changed = true
			}
		}
		if changed {
			s.Touch(p.ID)
		}
	}
	s.RecomputeOverall()
}

// RecomputeOverall re-derives the overall status from enabled probes.
// With no enabled probe the system is healthy.
func (s *States) RecomputeOverall() {
	overall := StatusHealthy
	for _, p := range s.Probes {
		if s.IsDisabled(p.ID) {
			continue
		}
		overall = Worst(overall, p.Status)
	}
	s.Status = overall
}

// ReplicaStatus derives the status of a live replica at the given time.
func (t Thresholds) ReplicaStatus(mode registry.Mode, r *ReplicaState, now time.Time) Status {
	delay := t.PushDeadDelay
	if mode == registry.ModeLocal {
		delay = t.LocalDeadDelay
	}
	if now.After(r.ReportedAt.Add(r.Interval + delay)) {
		return StatusDead
	}

	if r.Load != nil {
		if r.Load.CPU > t.CPUSickAbove || r.Load.RAM > t.RAMSickAbove {
			return StatusSick
		}
		return StatusHealthy
	}
	if r.Health != "" {
		return r.Health
	}
	return StatusDead
}

func (s *States) recomputeNode(n *NodeState, now time.Time) {
	status := StatusDead
	live := false
	for _, r := range n.Replicas {
		if !r.Live() {
			continue
		}
		r.Status = s.Thresholds.ReplicaStatus(n.Mode, r, now)
		if !live {
			status = r.Status
			live = true
			continue
		}
		status = Worst(status, r.Status)
	}
	n.Status = status
}

func (s *States) recomputeProbe(p *ProbeState) {
	status := StatusHealthy
	for _, n := range p.Nodes {
		status = Worst(status, n.Status)
	}
	p.Status = status
}

// takeDirty returns the changed probe ids and clears the set.
func (s *States) takeDirty() []string {
	if len(s.dirty) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.dirty = make(map[string]struct{})
	return ids
}

// View builds a read-only copy of all states.
func (s *States) View() StatesView {
	v := StatesView{
		Status:   s.Status,
		Probes:   make([]ProbeView, 0, len(s.Probes)),
		Disabled: s.DisabledIDs(),
	}
	for _, p := range s.Probes {
		v.Probes = append(v.Probes, s.probeView(p))
	}
	return v
}

func (s *States) probeView(p *ProbeState) ProbeView {
	pv := ProbeView{
		ID:       p.ID,
		Label:    p.Label,
		Status:   p.Status,
		Disabled: s.IsDisabled(p.ID),
		Nodes:    make([]NodeView, 0, len(p.Nodes)),
	}
	for _, n := range p.Nodes {
		nv := NodeView{
			ID:       n.ID,
			Label:    n.Label,
			Mode:     n.Mode,
			Status:   n.Status,
			Replicas: make([]ReplicaView, 0, len(n.Replicas)),
		}
		for id, r := range n.Replicas {
			nv.Replicas = append(nv.Replicas, replicaView(id, r))
		}
		sort.Slice(nv.Replicas, func(i, j int) bool {
			return nv.Replicas[i].ID < nv.Replicas[j].ID
		})
		pv.Nodes = append(pv.Nodes, nv)
	}
	return pv
}

func replicaView(id string, r *ReplicaState) ReplicaView {
	rv := ReplicaView{
		ID:              id,
		Status:          r.Status,
		Interval:        r.Interval,
		IntervalSeconds: int64(r.Interval / time.Second),
		Health:          r.Health,
		Generation:      r.Generation,
	}
	if r.Live() {
		at := r.ReportedAt
		rv.ReportedAt = &at
	} else {
		rv.Status = StatusDead
	}
	if r.Load != nil {
		load := *r.Load
		rv.Load = &load
	}
	return rv
}
