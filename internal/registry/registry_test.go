package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProbes() []Probe {
	return []Probe{
		{
			ID:    "api",
			Label: "API",
			Nodes: []Node{
				{ID: "worker-1", Mode: ModePush, Replicas: []string{"r1", "r2"}},
				{ID: "gateway", Mode: ModeLocal},
			},
		},
		{
			ID:    "db",
			Nodes: []Node{{ID: "primary", Mode: ModeLocal}},
		},
	}
}

func TestNew_Valid(t *testing.T) {
	reg, err := New(testProbes())
	require.NoError(t, err)

	probes := reg.Probes()
	require.Len(t, probes, 2)
	assert.Equal(t, "api", probes[0].ID)
	assert.Equal(t, "db", probes[1].ID)

	// labels default to ids
	assert.Equal(t, "db", probes[1].Label)
	assert.Equal(t, "gateway", probes[0].Nodes[1].Label)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		probes []Probe
		errMsg string
	}{
		{
			name:   "no probes",
			probes: nil,
			errMsg: "at least one probe is required",
		},
		{
			name:   "missing probe id",
			probes: []Probe{{Nodes: []Node{{ID: "n", Mode: ModePush}}}},
			errMsg: "probes[0]: id is required",
		},
		{
			name: "duplicate probe",
			probes: []Probe{
				{ID: "a", Nodes: []Node{{ID: "n", Mode: ModePush}}},
				{ID: "a", Nodes: []Node{{ID: "n", Mode: ModePush}}},
			},
			errMsg: `duplicate probe id: "a"`,
		},
		{
			name:   "no nodes",
			probes: []Probe{{ID: "a"}},
			errMsg: "at least one node is required",
		},
		{
			name:   "duplicate node",
			probes: []Probe{{ID: "a", Nodes: []Node{{ID: "n", Mode: ModePush}, {ID: "n", Mode: ModeLocal}}}},
			errMsg: `duplicate node id: "n"`,
		},
		{
			name:   "bad mode",
			probes: []Probe{{ID: "a", Nodes: []Node{{ID: "n", Mode: "poll"}}}},
			errMsg: `unknown node mode "poll"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.probes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFindNode(t *testing.T) {
	reg, err := New(testProbes())
	require.NoError(t, err)

	n, ok := reg.FindNode("api", "worker-1")
	require.True(t, ok)
	assert.Equal(t, ModePush, n.Mode)
	assert.True(t, n.HasReplica("r2"))
	assert.False(t, n.HasReplica("r3"))

	n, ok = reg.FindNode("api", "gateway")
	require.True(t, ok)
	assert.Equal(t, ModeLocal, n.Mode)

	_, ok = reg.FindNode("api", "missing")
	assert.False(t, ok)
	_, ok = reg.FindNode("unknown", "worker-1")
	assert.False(t, ok)
}

func TestNew_CopiesInput(t *testing.T) {
	probes := testProbes()
	reg, err := New(probes)
	require.NoError(t, err)

	probes[0].Nodes[0].Replicas[0] = "mutated"

	n, ok := reg.FindNode("api", "worker-1")
	require.True(t, ok)
	assert.Equal(t, "r1", n.Replicas[0])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("push")
	require.NoError(t, err)
	assert.Equal(t, ModePush, m)

	m, err = ParseMode("local")
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, m)

	_, err = ParseMode("script")
	assert.Error(t, err)
}
