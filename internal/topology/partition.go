// The partitioner assigns LP ids to locally-owned nodes via breadth-first
// traversal, cutting only on point-to-point links whose delay is at least
// minLookahead, then migrates any pre-existing staging-LP events into the
// LPs just created.
package topology

import (
	"sort"

	"github.com/inference-sim/hybrid-des/internal/deserr"
	"github.com/inference-sim/hybrid-des/internal/dispatcher"
	"github.com/inference-sim/hybrid-des/internal/event"
	"github.com/inference-sim/hybrid-des/internal/lp"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
)

// maxLPsPerRank is the partition-overflow limit: a composite system id has
// only 16 bits of localId.
const maxLPsPerRank = 1<<16 - 1

// Result reports what Partition computed, for logging and tests.
type Result struct {
	NumLPs       int
	MinLookahead int64
}

// Partition runs once per OS process at the start of Run. It labels every
// locally-owned node with a system id, derives minLookahead if it was left
// at 0 ("auto"), instantiates LPs via dispatcher.EnableNew, and migrates any
// events already sitting on the staging LP.
func Partition(topo *Topology, disp *dispatcher.Dispatcher, rank uint16, minLookahead int64, kind scheduler.Kind) (Result, error) {
	if minLookahead == 0 {
		minLookahead = autoMinLookahead(topo, rank)
	}

	visited := make([]bool, len(topo.Nodes))
	var localID int

	for i := range topo.Nodes {
		n := &topo.Nodes[i]
		if !topo.IsLocal(n, rank) || visited[n.ID] {
			continue
		}
		localID++
		if localID > maxLPsPerRank {
			return Result{}, deserr.ErrPartitionOverflow
		}
		bfs(topo, n.ID, rank, uint16(localID), minLookahead, visited)
	}

	numLPs := localID
	disp.EnableNew(numLPs, kind, minLookahead)

	migrate(topo, disp, rank)

	return Result{NumLPs: numLPs, MinLookahead: minLookahead}, nil
}

// bfs visits every locally-owned node reachable from start without
// crossing a partition cut, assigning each the same localID.
func bfs(topo *Topology, start NodeID, rank uint16, localID uint16, minLookahead int64, visited []bool) {
	queue := []NodeID{start}
	visited[start] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		n := &topo.Nodes[cur]
		n.SystemID = PackSystemID(localID, rank)

		for _, devID := range n.DeviceIDs {
			dev := topo.Device(devID)
			ch := topo.ChannelOf(dev.ChannelID)

			if ch.PointToPoint && ch.Delay >= minLookahead {
				// Partition cut: do not cross this link.
				continue
			}

			for _, otherDevID := range ch.DeviceIDs {
				if otherDevID == devID {
					continue
				}
				otherNode := topo.Device(otherDevID).NodeID
				on := &topo.Nodes[otherNode]
				if !topo.IsLocal(on, rank) || visited[otherNode] {
					continue
				}
				visited[otherNode] = true
				queue = append(queue, otherNode)
			}
		}
	}
}

// autoMinLookahead computes the median delay of every locally-owned
// point-to-point link. Returns 0 if there are none.
func autoMinLookahead(topo *Topology, rank uint16) int64 {
	var delays []int64
	seen := make(map[ChannelID]bool)

	for i := range topo.Nodes {
		n := &topo.Nodes[i]
		if !topo.IsLocal(n, rank) {
			continue
		}
		for _, devID := range n.DeviceIDs {
			dev := topo.Device(devID)
			if seen[dev.ChannelID] {
				continue
			}
			ch := topo.ChannelOf(dev.ChannelID)
			if !ch.PointToPoint {
				continue
			}
			// Only count links with at least one locally-owned endpoint,
			// which is guaranteed here since we are iterating this node's
			// own devices.
			seen[dev.ChannelID] = true
			delays = append(delays, ch.Delay)
		}
	}

	if len(delays) == 0 {
		return 0
	}
	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })
	mid := len(delays) / 2
	if len(delays)%2 == 1 {
		return delays[mid]
	}
	return (delays[mid-1] + delays[mid]) / 2
}

// migrate drains the staging LP's scheduler, ordered by (timestamp,
// sequence), and routes each event:
//   - timestamp == 0: invoke immediately on the LP owning the event's
//     context, in the drained order. Anything such an event schedules
//     itself goes through the normal Schedule/ScheduleWithContext path
//     rather than being inlined too.
//   - context == NoContext: re-schedule on the staging LP.
//   - otherwise: re-schedule with the context routed to the owning LP.
func migrate(topo *Topology, disp *dispatcher.Dispatcher, rank uint16) {
	staging := disp.StagingLP()

	var drained []*event.Event
	for {
		e := staging.DrainNext()
		if e == nil {
			break
		}
		drained = append(drained, e)
	}

	for _, e := range drained {
		switch {
		case e.Timestamp == 0:
			target := OwnerLP(disp, rank, e.Context)
			target.InvokeNow(e)
		case e.Context == event.NoContext:
			staging.MigrateEvent(staging, e)
		default:
			target := OwnerLP(disp, rank, e.Context)
			staging.MigrateEvent(target, e)
		}
	}
}

// OwnerLP resolves the LP owning a node identified by its packed system id
// (the convention the partitioner and the coordinator share for a message's
// context field), falling back to the staging LP for NoContext or any id
// that does not decode to a local LP.
func OwnerLP(disp *dispatcher.Dispatcher, rank uint16, ctx uint32) *lp.LogicalProcess {
	if ctx == event.NoContext {
		return disp.StagingLP()
	}
	localID, nodeRank := UnpackSystemID(ctx)
	if nodeRank != rank {
		return disp.StagingLP()
	}
	if found := disp.LP(lp.ID(localID)); found != nil {
		return found
	}
	return disp.StagingLP()
}
