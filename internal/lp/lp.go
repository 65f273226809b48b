// Package lp implements the LogicalProcess: one scheduler, a local
// now-clock, a pending cross-LP inbox, and the round-execution logic. It is
// a thin wrapper with a LocalID field, a Now() accessor and a "not
// thread-safe, one goroutine at a time" contract.
package lp

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hybrid-des/internal/deserr"
	"github.com/inference-sim/hybrid-des/internal/event"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
)

// ID is the LP-local identifier, 1..N within one OS process. 0 is reserved
// for the staging LP used before partitioning.
type ID uint32

// StagingID is the reserved pre-partition LP.
const StagingID ID = 0

// LogicalProcess owns one scheduler and executes its own events in strict
// (timestamp, sequence) order. All scheduler state is private; only the
// inbox is shared across goroutines, and only under inboxMu.
//
// Thread-safety: Schedule/InvokeNow/ProcessOneRound/Stop/IsFinished must all
// be called from the single worker currently owning this LP. Other
// goroutines reach this LP only through its inbox: another LP's
// ScheduleWithContext or MigrateEvent targeting it, and EnqueueRemote, push
// under inboxMu concurrently with the owner; the inbox is drained by the
// owner alone.
type LogicalProcess struct {
	LocalID ID

	now           int64
	sched         scheduler.Scheduler
	nextSequence  uint64
	eventCount    uint64
	stopRequested bool

	inboxMu sync.Mutex
	inbox   []*event.Event

	minLookahead int64
}

// New constructs an LP with the given scheduler backend and the
// minLookahead that bounds cross-LP sends originating from it.
func New(id ID, kind scheduler.Kind, minLookahead int64) *LogicalProcess {
	return &LogicalProcess{
		LocalID:      id,
		sched:        scheduler.New(kind),
		minLookahead: minLookahead,
	}
}

// Now returns the LP's current simulated time.
func (lp *LogicalProcess) Now() int64 { return lp.now }

// EventCount returns the number of events this LP has executed.
func (lp *LogicalProcess) EventCount() uint64 { return lp.eventCount }

func (lp *LogicalProcess) nextSeq() uint64 {
	lp.nextSequence++
	return lp.nextSequence
}

// Schedule inserts a self-targeted event at now+delay. Returns
// ErrInvalidDelay if delay < 0.
func (lp *LogicalProcess) Schedule(delay int64, payload event.Payload) error {
	if delay < 0 {
		return deserr.ErrInvalidDelay
	}
	lp.sched.Insert(event.New(lp.now+delay, event.NoContext, lp.nextSeq(), 0, payload))
	return nil
}

// ScheduleWithContext schedules an event, possibly for another LP. If
// target == lp, behaves like Schedule. Otherwise the event is timestamped
// lp.now+delay and pushed into target's remote inbox under a short critical
// section; delay must be >= minLookahead or ErrLookaheadViolation is
// returned, a fatal condition.
func (lp *LogicalProcess) ScheduleWithContext(target *LogicalProcess, ctx uint32, delay int64, payload event.Payload) error {
	if delay < 0 {
		return deserr.ErrInvalidDelay
	}
	if target == lp {
		lp.sched.Insert(event.New(lp.now+delay, ctx, lp.nextSeq(), 0, payload))
		return nil
	}
	if delay < lp.minLookahead {
		return deserr.ErrLookaheadViolation
	}
	e := event.New(lp.now+delay, ctx, lp.nextSeq(), 0, payload)
	target.pushInbox(e)
	return nil
}

// pushInbox appends e to the inbox under a short critical section. Called
// by a sender LP (or the transport shim) targeting this LP.
func (lp *LogicalProcess) pushInbox(e *event.Event) {
	lp.inboxMu.Lock()
	lp.inbox = append(lp.inbox, e)
	lp.inboxMu.Unlock()
}

// EnqueueRemote is the transport shim's entry point for delivering a
// deserialized cross-process event directly into this LP's inbox.
func (lp *LogicalProcess) EnqueueRemote(e *event.Event) {
	lp.pushInbox(e)
}

// drainInbox moves all pending inbox events into the scheduler, in arrival
// order, giving each this LP's next sequence number so that sequences stay
// unique within the LP. Called only by the owning worker, at round
// boundaries, so the lock is held just long enough to swap the slice.
func (lp *LogicalProcess) drainInbox() {
	lp.inboxMu.Lock()
	pending := lp.inbox
	lp.inbox = nil
	lp.inboxMu.Unlock()

	for _, e := range pending {
		e.Sequence = lp.nextSeq()
		lp.sched.Insert(e)
	}
}

// InvokeNow executes e immediately without scheduling it, used only during
// initialization migration. It does not advance now and does not increment
// eventCount.
func (lp *LogicalProcess) InvokeNow(e *event.Event) {
	if e.Payload != nil {
		e.Payload()
	}
}

// DrainNext removes and returns the staging LP's smallest-keyed event, or
// nil once empty. Used only by the partitioner to walk the pre-partition
// event set in (timestamp, sequence) order during migration.
func (lp *LogicalProcess) DrainNext() *event.Event {
	return lp.sched.RemoveNext()
}

// MigrateEvent places a pre-existing event (with its timestamp, context and
// sequence already assigned, from before partitioning) directly onto
// target's scheduler (if target == lp) or inbox (otherwise), bypassing the
// live lookahead check: migration moves events that existed before any LP
// boundary was drawn, so the lookahead invariant -- which bounds sends made
// *after* partitioning -- does not apply to them.
func (lp *LogicalProcess) MigrateEvent(target *LogicalProcess, e *event.Event) {
	if target == lp {
		lp.sched.Insert(e)
		return
	}
	target.pushInbox(e)
}

// ProcessOneRound drains the inbox, then executes events in (timestamp,
// sequence) order while the next event's timestamp <= grant and Stop has
// not been requested. Cancelled events are skipped (and not counted).
// Returns the number of events executed.
func (lp *LogicalProcess) ProcessOneRound(grant int64) int {
	lp.drainInbox()

	// Events execute while timestamp <= grant, not strictly below: grant is
	// itself the timestamp of whichever LP's next event set the global
	// minimum, and that event must still run in this round. A strict "<"
	// here would stall forever whenever this LP's own next event is the one
	// that produced the grant.
	executed := 0
	for !lp.stopRequested {
		next := lp.sched.PeekNext()
		if next == nil || next.Timestamp > grant {
			break
		}
		e := lp.sched.RemoveNext()
		if e.Cancelled {
			continue
		}
		lp.now = e.Timestamp
		if e.Payload != nil {
			e.Payload()
		}
		atomic.AddUint64(&lp.eventCount, 1)
		executed++
	}

	if lp.IsFinished() {
		logrus.Debugf("lp %d: finished at now=%d", lp.LocalID, lp.now)
	}
	return executed
}

// Stop sets stopRequested; the round loop exits at its next check.
func (lp *LogicalProcess) Stop() {
	lp.stopRequested = true
}

// StopAfter schedules a self-targeted Stop at now+delay.
func (lp *LogicalProcess) StopAfter(delay int64) error {
	return lp.Schedule(delay, lp.Stop)
}

// IsFinished reports true iff the scheduler and inbox are both empty.
func (lp *LogicalProcess) IsFinished() bool {
	lp.inboxMu.Lock()
	empty := len(lp.inbox) == 0
	lp.inboxMu.Unlock()
	return lp.sched.IsEmpty() && empty
}

// NextTimestamp returns the timestamp of the next pending event -- the
// smaller of the scheduler's head and the undrained inbox's minimum -- or
// false if the LP has no pending work at all (used by the dispatcher's
// CalculateSmallestTime).
//
// The inbox must be considered here, not just the scheduler: an event
// delivered by the transport shim sits in the inbox until this LP's next
// round runs ProcessOneRound (which drains it). If calculateSmallestTime
// only consulted the scheduler, an LP with inbox-only work could be left
// out of the dispatcher's eligible set forever, since nothing would ever
// report its timestamp as due.
func (lp *LogicalProcess) NextTimestamp() (int64, bool) {
	next := lp.sched.PeekNext()
	var schedTs int64
	haveSched := next != nil
	if haveSched {
		schedTs = next.Timestamp
	}

	lp.inboxMu.Lock()
	var inboxTs int64
	haveInbox := false
	for _, e := range lp.inbox {
		if !haveInbox || e.Timestamp < inboxTs {
			inboxTs = e.Timestamp
			haveInbox = true
		}
	}
	lp.inboxMu.Unlock()

	switch {
	case haveSched && haveInbox:
		if schedTs < inboxTs {
			return schedTs, true
		}
		return inboxTs, true
	case haveSched:
		return schedTs, true
	case haveInbox:
		return inboxTs, true
	default:
		return 0, false
	}
}
