// Package config groups the run options the core recognizes, loaded from
// CLI flags and an optional YAML topology file.
//
// One struct per concern, plain fields, a doc comment per field rather than
// one block comment per struct.
package config

// Options groups the core's recognized configuration.
type Options struct {
	MaxThreads                  int    // worker pool upper bound; 0 = hardware concurrency
	MinLookahead                int64  // minimum cross-LP link delay; 0 = auto (median of local P2P delays)
	SimulatorImplementationType string // selects this core among simulator backends
	SchedulerType               string // "heap" (default), "map"
}

// Default returns the default option set. The run subcommand does not
// build an Options value; its --max-threads, --min-lookahead and
// --scheduler-type flag defaults carry the same values.
func Default() Options {
	return Options{
		MaxThreads:                  0,
		MinLookahead:                1,
		SimulatorImplementationType: "hybrid",
		SchedulerType:               "heap",
	}
}

// TopologyFile describes the YAML shape a run's node/device/channel graph
// is loaded from.
type TopologyFile struct {
	Nodes    []TopologyNode    `yaml:"nodes"`
	Channels []TopologyChannel `yaml:"channels"`
}

// TopologyNode is one node entry: its owning rank and the channels its
// devices attach to, in device order.
type TopologyNode struct {
	Rank     uint16 `yaml:"rank"`
	Channels []int  `yaml:"channels"` // indices into TopologyFile.Channels
}

// TopologyChannel is one channel entry.
type TopologyChannel struct {
	Delay        int64 `yaml:"delay"`
	PointToPoint bool  `yaml:"point_to_point"`
}
