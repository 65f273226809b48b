package topology

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/hybrid-des/internal/detrand"
	"github.com/inference-sim/hybrid-des/internal/dispatcher"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
)

// TestPartition_ChainOfFourCutsOnlyLongLink builds a chain A-B-C-D with link
// delays {1, 10, 1} and MinLookahead=5. BFS must yield two LPs: {A,B} and
// {C,D}, cutting only the 10ms link.
func TestPartition_ChainOfFourCutsOnlyLongLink(t *testing.T) {
	topo := NewTopology()
	a := topo.AddNode(0)
	b := topo.AddNode(0)
	c := topo.AddNode(0)
	d := topo.AddNode(0)

	ch1 := topo.AddChannel(1, true)
	ch2 := topo.AddChannel(10, true)
	ch3 := topo.AddChannel(1, true)

	topo.AddDevice(a, ch1)
	topo.AddDevice(b, ch1)
	topo.AddDevice(b, ch2)
	topo.AddDevice(c, ch2)
	topo.AddDevice(c, ch3)
	topo.AddDevice(d, ch3)

	disp := dispatcher.New(4, scheduler.KindHeap, 5)
	result, err := Partition(topo, disp, 0, 5, scheduler.KindHeap)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumLPs)

	aID, _ := UnpackSystemID(topo.Node(a).SystemID)
	bID, _ := UnpackSystemID(topo.Node(b).SystemID)
	cID, _ := UnpackSystemID(topo.Node(c).SystemID)
	dID, _ := UnpackSystemID(topo.Node(d).SystemID)

	require.Equal(t, aID, bID)
	require.Equal(t, cID, dID)
	require.NotEqual(t, aID, cID)
}

// TestPartition_AutoMedianLookahead uses local point-to-point delays
// {1,3,5,9,100} with MinLookahead=0; the auto-derived value must be the
// median, 5.
func TestPartition_AutoMedianLookahead(t *testing.T) {
	topo := NewTopology()
	hub := topo.AddNode(0)
	delays := []int64{1, 3, 5, 9, 100}
	for _, d := range delays {
		leaf := topo.AddNode(0)
		ch := topo.AddChannel(d, true)
		topo.AddDevice(hub, ch)
		topo.AddDevice(leaf, ch)
	}

	disp := dispatcher.New(4, scheduler.KindHeap, 0)
	result, err := Partition(topo, disp, 0, 0, scheduler.KindHeap)
	require.NoError(t, err)
	require.Equal(t, int64(5), result.MinLookahead)
}

// TestPartition_CoverageAndImmutability checks that every locally-owned
// node ends with localId in [1, numLPs], and that no remote node is
// relabeled.
func TestPartition_CoverageAndImmutability(t *testing.T) {
	topo := NewTopology()
	local1 := topo.AddNode(0)
	local2 := topo.AddNode(0)
	remote := topo.AddNode(1)

	disp := dispatcher.New(2, scheduler.KindHeap, 1)
	result, err := Partition(topo, disp, 0, 1, scheduler.KindHeap)
	require.NoError(t, err)

	for _, n := range []NodeID{local1, local2} {
		localID, rank := UnpackSystemID(topo.Node(n).SystemID)
		require.Equal(t, uint16(0), rank)
		require.GreaterOrEqual(t, int(localID), 1)
		require.LessOrEqual(t, int(localID), result.NumLPs)
	}

	require.Equal(t, uint32(0), topo.Node(remote).SystemID)
}

func TestPartition_SingleIsolatedNode(t *testing.T) {
	topo := NewTopology()
	topo.AddNode(0)

	disp := dispatcher.New(1, scheduler.KindHeap, 1)
	result, err := Partition(topo, disp, 0, 1, scheduler.KindHeap)
	require.NoError(t, err)
	require.Equal(t, 1, result.NumLPs)
}

// synthesizeHubTopology draws leaves point-to-point delays from rng and
// wires them into a hub-and-spoke topology, returning both the topology and
// the delays used so a caller can independently recompute the expected
// median.
func synthesizeHubTopology(rng *rand.Rand, leaves int) (*Topology, []int64) {
	topo := NewTopology()
	hub := topo.AddNode(0)
	delays := make([]int64, leaves)
	for i := 0; i < leaves; i++ {
		d := int64(1 + rng.Intn(200))
		delays[i] = d
		leaf := topo.AddNode(0)
		ch := topo.AddChannel(d, true)
		topo.AddDevice(hub, ch)
		topo.AddDevice(leaf, ch)
	}
	return topo, delays
}

func median(delays []int64) int64 {
	sorted := append([]int64(nil), delays...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// TestPartition_AutoMedianLookahead_SynthesizedTopology derives link delays
// from detrand.PartitionedRNG's "topology" subsystem instead of a literal
// slice, then checks the partitioner's auto-derived lookahead against an
// independently computed median of those same delays.
func TestPartition_AutoMedianLookahead_SynthesizedTopology(t *testing.T) {
	rng := detrand.New(1234).ForSubsystem("topology")
	topo, delays := synthesizeHubTopology(rng, 7)

	disp := dispatcher.New(4, scheduler.KindHeap, 0)
	result, err := Partition(topo, disp, 0, 0, scheduler.KindHeap)
	require.NoError(t, err)
	require.Equal(t, median(delays), result.MinLookahead)
}

// TestPartition_AutoMedianLookahead_TiesReproducibly checks the even-count
// tie-break branch (average of the two middle delays) using synthesized
// delays, and that two PartitionedRNGs sharing a master seed reproduce the
// same topology and therefore the same auto-derived lookahead -- the
// determinism detrand exists to provide.
func TestPartition_AutoMedianLookahead_TiesReproducibly(t *testing.T) {
	rngA := detrand.New(555).ForSubsystem("topology")
	topoA, delaysA := synthesizeHubTopology(rngA, 8)
	dispA := dispatcher.New(4, scheduler.KindHeap, 0)
	resultA, err := Partition(topoA, dispA, 0, 0, scheduler.KindHeap)
	require.NoError(t, err)
	require.Equal(t, median(delaysA), resultA.MinLookahead)

	rngB := detrand.New(555).ForSubsystem("topology")
	topoB, delaysB := synthesizeHubTopology(rngB, 8)
	dispB := dispatcher.New(4, scheduler.KindHeap, 0)
	resultB, err := Partition(topoB, dispB, 0, 0, scheduler.KindHeap)
	require.NoError(t, err)

	require.Equal(t, delaysA, delaysB)
	require.Equal(t, resultA.MinLookahead, resultB.MinLookahead)
}
