// Package coordinator implements the time-window coordinator: the
// per-process Run loop that drains the transport, computes this rank's LBTS
// contribution, all-gathers with every other rank, derives the global grant
// and termination state, and asks the dispatcher to execute one round.
//
// One goroutine runs this loop per rank, in the style of dedis-tlc's
// rank-indexed peer/node Run loop.
package coordinator

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hybrid-des/internal/deserr"
	"github.com/inference-sim/hybrid-des/internal/dispatcher"
	"github.com/inference-sim/hybrid-des/internal/event"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
	"github.com/inference-sim/hybrid-des/internal/topology"
	"github.com/inference-sim/hybrid-des/internal/transport"
)

// DecodePayload turns a message's opaque application bytes into an
// invocable event payload. The core stays agnostic to what a payload
// does; the caller supplies this hook.
type DecodePayload func(data []byte) event.Payload

// Coordinator owns one process's view of the run: its topology slice, its
// dispatcher, and the transport connecting it to every other rank.
type Coordinator struct {
	Topo          *topology.Topology
	Dispatcher    *dispatcher.Dispatcher
	Transport     transport.Transport
	Rank          uint16
	MinLookahead  int64
	SchedulerKind scheduler.Kind

	DecodePayload DecodePayload

	// RunBefore and RunAfter are optional one-time hooks run immediately
	// after partitioning and immediately after the loop exits.
	RunBefore func()
	RunAfter  func()

	rounds    int
	remoteSeq uint64
}

// Run executes the full per-process loop once: partition, then loop until
// global termination, then the after-hook. Returns a fatal deserr sentinel
// on transport failure; the caller maps it to an exit code via
// deserr.ExitCode.
func (c *Coordinator) Run() error {
	if _, err := topology.Partition(c.Topo, c.Dispatcher, c.Rank, c.MinLookahead, c.SchedulerKind); err != nil {
		return err
	}

	if c.RunBefore != nil {
		c.RunBefore()
	}

	for {
		finished, err := c.step()
		if err != nil {
			return err
		}
		if finished {
			break
		}
	}

	if c.RunAfter != nil {
		c.RunAfter()
	}
	return nil
}

// step runs one iteration of the coordinator loop and reports whether the
// whole distributed run has terminated.
func (c *Coordinator) step() (bool, error) {
	msgs, err := c.Transport.ReceiveMessages()
	if err != nil {
		return false, deserr.ErrTransportError
	}
	for _, m := range msgs {
		c.deliver(m)
	}
	c.Transport.TestSendComplete()

	localSmallest := c.Dispatcher.CalculateSmallestTime()
	myLbts := transport.LBTSRecord{
		SmallestTime: localSmallest,
		RxCount:      c.Transport.RxCount(),
		TxCount:      c.Transport.TxCount(),
		Rank:         uint32(c.Rank),
		Finished:     c.Dispatcher.IsFinished(),
	}

	allLbts, err := c.Transport.AllGather(myLbts)
	if err != nil {
		return false, deserr.ErrTransportError
	}

	var grant int64 = 1 << 62
	var totRx, totTx uint64
	allDone := true
	for _, r := range allLbts {
		if r.SmallestTime < grant {
			grant = r.SmallestTime
		}
		totRx += uint64(r.RxCount)
		totTx += uint64(r.TxCount)
		allDone = allDone && r.Finished
	}

	c.Dispatcher.SetSmallestTime(grant)
	noTransients := totRx == totTx
	globalFinished := allDone && noTransients

	if noTransients && !c.Dispatcher.IsFinished() {
		executed := c.Dispatcher.ProcessOneRound()
		c.rounds++
		logrus.Debugf("coordinator rank=%d round=%d grant=%d executed=%d", c.Rank, c.rounds, grant, executed)
	}

	return globalFinished, nil
}

// deliver routes one received message onto its owning local LP, using the
// message's logical send time plus link delay as the absolute arrival
// timestamp.
func (c *Coordinator) deliver(m transport.Message) {
	target := topology.OwnerLP(c.Dispatcher, c.Rank, m.ContextNodeID)
	payload := c.DecodePayload(m.Data)
	arrival := m.LogicalSendAt + m.LinkDelay
	c.remoteSeq++
	e := event.New(arrival, m.ContextNodeID, c.remoteSeq, 0, payload)
	target.EnqueueRemote(e)
}

// Rounds reports how many dispatcher rounds this process has run, for
// diagnostics and the run report (metrics.Report).
func (c *Coordinator) Rounds() int { return c.rounds }
