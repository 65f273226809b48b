package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/hybrid-des/internal/topology"
)

// LoadTopology reads a YAML TopologyFile from path and builds the
// Node/Device/Channel graph the partitioner consumes. Each node's Channels
// list names the channels it attaches one device to, in order; a channel
// may be named by more than one node, forming its two (or more) endpoints.
func LoadTopology(path string) (*topology.Topology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf TopologyFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, err
	}
	return BuildTopology(tf), nil
}

// BuildTopology turns an already-parsed TopologyFile into a topology.Topology.
func BuildTopology(tf TopologyFile) *topology.Topology {
	t := topology.NewTopology()

	channelIDs := make([]topology.ChannelID, len(tf.Channels))
	for i, c := range tf.Channels {
		channelIDs[i] = t.AddChannel(c.Delay, c.PointToPoint)
	}

	for _, n := range tf.Nodes {
		nodeID := t.AddNode(n.Rank)
		for _, chIdx := range n.Channels {
			t.AddDevice(nodeID, channelIDs[chIdx])
		}
	}

	return t
}
