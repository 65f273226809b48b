// Package topology models the node/device/channel graph the partitioner
// consumes, and the node-to-LP system-id packing.
//
// Node/device/channel form a cyclic object graph, represented with
// arena-allocated slices and integer handles rather than owning
// back-pointers: a Topology holds flat Nodes/Devices/Channels slices, and
// every cross-reference is an index into one of them.
package topology

// NodeID, DeviceID and ChannelID are arena handles: indices into a
// Topology's Nodes/Devices/Channels slices.
type NodeID int
type DeviceID int
type ChannelID int

// Node is a locally- or remotely-owned vertex in the simulated network.
// SystemID starts at 0 (unassigned) and is immutable once the partitioner
// sets it.
type Node struct {
	ID        NodeID
	Rank      uint16 // owning OS process rank
	SystemID  uint32 // 0 until partitioned; see PackSystemID
	DeviceIDs []DeviceID
}

// Device is one network interface attached to exactly one Node and exactly
// one Channel.
type Device struct {
	ID        DeviceID
	NodeID    NodeID
	ChannelID ChannelID
}

// Channel connects two or more Devices. Delay is the simulated-time cost of
// traversing it, in ticks; PointToPoint marks a dedicated link between
// exactly two devices, the only kind of channel the partitioner may cut on.
type Channel struct {
	ID           ChannelID
	Delay        int64
	PointToPoint bool
	DeviceIDs    []DeviceID
}

// Topology is the flat, read-only graph the partitioner walks. Construct
// one with NewTopology and populate it with AddNode/AddDevice/AddChannel
// before calling Partition.
type Topology struct {
	Nodes    []Node
	Devices  []Device
	Channels []Channel
}

// NewTopology returns an empty Topology.
func NewTopology() *Topology {
	return &Topology{}
}

// AddNode appends a node owned by rank and returns its handle.
func (t *Topology) AddNode(rank uint16) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{ID: id, Rank: rank})
	return id
}

// AddChannel appends a channel and returns its handle.
func (t *Topology) AddChannel(delay int64, pointToPoint bool) ChannelID {
	id := ChannelID(len(t.Channels))
	t.Channels = append(t.Channels, Channel{ID: id, Delay: delay, PointToPoint: pointToPoint})
	return id
}

// AddDevice attaches a new device to node, on channel, and returns its
// handle. Both the node's and the channel's endpoint lists are updated.
func (t *Topology) AddDevice(node NodeID, channel ChannelID) DeviceID {
	id := DeviceID(len(t.Devices))
	t.Devices = append(t.Devices, Device{ID: id, NodeID: node, ChannelID: channel})
	t.Nodes[node].DeviceIDs = append(t.Nodes[node].DeviceIDs, id)
	t.Channels[channel].DeviceIDs = append(t.Channels[channel].DeviceIDs, id)
	return id
}

// Node, Device and Channel perform handle->value lookups.
func (t *Topology) Node(id NodeID) *Node       { return &t.Nodes[id] }
func (t *Topology) Device(id DeviceID) *Device { return &t.Devices[id] }
func (t *Topology) ChannelOf(id ChannelID) *Channel {
	return &t.Channels[id]
}

// IsLocal reports whether node is owned by myRank.
func (t *Topology) IsLocal(n *Node, myRank uint16) bool {
	return n.Rank == myRank
}

// PackSystemID combines a per-rank LP id and the owning rank into the
// composite system id: high 16 bits localId, low 16 bits rank.
func PackSystemID(localID uint16, rank uint16) uint32 {
	return uint32(localID)<<16 | uint32(rank)
}

// UnpackSystemID splits a composite system id back into (localId, rank).
func UnpackSystemID(sysID uint32) (localID uint16, rank uint16) {
	return uint16(sysID >> 16), uint16(sysID & 0xFFFF)
}
