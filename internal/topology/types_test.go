package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddNodeDeviceChannel(t *testing.T) {
	topo := NewTopology()
	n1 := topo.AddNode(0)
	n2 := topo.AddNode(0)
	ch := topo.AddChannel(5, true)
	d1 := topo.AddDevice(n1, ch)
	d2 := topo.AddDevice(n2, ch)

	require.Len(t, topo.Node(n1).DeviceIDs, 1)
	require.Equal(t, d1, topo.Node(n1).DeviceIDs[0])
	require.Len(t, topo.ChannelOf(ch).DeviceIDs, 2)
	require.Contains(t, topo.ChannelOf(ch).DeviceIDs, d1)
	require.Contains(t, topo.ChannelOf(ch).DeviceIDs, d2)
}

func TestIsLocal(t *testing.T) {
	topo := NewTopology()
	local := topo.Node(topo.AddNode(3))
	remote := topo.Node(topo.AddNode(4))

	require.True(t, topo.IsLocal(local, 3))
	require.False(t, topo.IsLocal(remote, 3))
}

func TestPackUnpackSystemID(t *testing.T) {
	packed := PackSystemID(7, 2)
	localID, rank := UnpackSystemID(packed)
	require.Equal(t, uint16(7), localID)
	require.Equal(t, uint16(2), rank)
}

func TestPackUnpackSystemID_Zero(t *testing.T) {
	localID, rank := UnpackSystemID(0)
	require.Equal(t, uint16(0), localID)
	require.Equal(t, uint16(0), rank)
}
