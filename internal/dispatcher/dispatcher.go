// Package dispatcher implements the process-wide LP runtime: a fixed worker
// pool that executes non-conflicting LPs concurrently within the current
// granted time window, one worker per LP at a time.
package dispatcher

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hybrid-des/internal/event"
	"github.com/inference-sim/hybrid-des/internal/lp"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
)

// Dispatcher is the process-wide singleton LP runtime, modeled as an
// explicit context object rather than a package-level global: callers
// construct one per process and pass it to the coordinator and partitioner.
type Dispatcher struct {
	mu  sync.Mutex // guards lps, destroyQueue
	lps map[lp.ID]*lp.LogicalProcess

	threadCount int
	grant       int64

	destroyQueue []*event.Event

	// currentLP tracks, per worker slot, which LP that worker is currently
	// executing. Go has no native thread-local storage; this is the
	// pragmatic substitute, indexed by worker slot rather than OS thread id.
	currentLP []atomic.Pointer[lp.LogicalProcess]
}

// New constructs a Dispatcher with a worker pool of maxThreads workers, or
// of hardware concurrency if maxThreads <= 0; EnableNew later caps it at
// numLPs. The reserved staging LP (id 0) is created
// immediately, since application setup code schedules its t=0
// initialization events onto it before the partitioner has run.
func New(maxThreads int, kind scheduler.Kind, minLookahead int64) *Dispatcher {
	if maxThreads <= 0 {
		maxThreads = runtime.NumCPU()
	}
	d := &Dispatcher{
		lps:         make(map[lp.ID]*lp.LogicalProcess),
		threadCount: maxThreads,
	}
	d.lps[lp.StagingID] = lp.New(lp.StagingID, kind, minLookahead)
	d.currentLP = make([]atomic.Pointer[lp.LogicalProcess], d.threadCount)
	return d
}

// StagingLP returns the reserved pre-partition LP (id 0), used by
// application setup code to schedule initialization events before
// EnableNew has run.
func (d *Dispatcher) StagingLP() *lp.LogicalProcess {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lps[lp.StagingID]
}

// EnableNew allocates LPs 1..lpCount and caps the worker pool at
// min(threadCount, lpCount). Called once by the partitioner after BFS
// assigns localId counts.
func (d *Dispatcher) EnableNew(lpCount int, kind scheduler.Kind, minLookahead int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 1; i <= lpCount; i++ {
		d.lps[lp.ID(i)] = lp.New(lp.ID(i), kind, minLookahead)
	}
	if d.threadCount > lpCount && lpCount > 0 {
		d.threadCount = lpCount
	}
	if d.threadCount < 1 {
		d.threadCount = 1
	}
	d.currentLP = make([]atomic.Pointer[lp.LogicalProcess], d.threadCount)
}

// LP returns the LP with the given id, or nil.
func (d *Dispatcher) LP(id lp.ID) *lp.LogicalProcess {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lps[id]
}

// NumLPs returns the number of non-staging LPs.
func (d *Dispatcher) NumLPs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lps) - 1
}

// ThreadCount returns the worker pool size actually in use.
func (d *Dispatcher) ThreadCount() int {
	return d.threadCount
}

// CalculateSmallestTime returns the minimum, over all local LPs, of the
// timestamp of the next pending event (scheduler head or undrained inbox),
// or 1<<62 if every LP is idle. Single-threaded: called only by the
// coordinator between rounds, never concurrently with ProcessOneRound.
func (d *Dispatcher) CalculateSmallestTime() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	const maxTime = int64(1) << 62
	smallest := maxTime
	for id, proc := range d.lps {
		if id == lp.StagingID {
			continue
		}
		if ts, ok := proc.NextTimestamp(); ok && ts < smallest {
			smallest = ts
		}
	}
	return smallest
}

// SetSmallestTime records the granted time for the upcoming round.
func (d *Dispatcher) SetSmallestTime(grant int64) {
	atomic.StoreInt64(&d.grant, grant)
}

// Grant returns the currently granted time.
func (d *Dispatcher) Grant() int64 {
	return atomic.LoadInt64(&d.grant)
}

// IsFinished reports true iff every local LP is finished.
func (d *Dispatcher) IsFinished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, proc := range d.lps {
		if id == lp.StagingID {
			continue
		}
		if !proc.IsFinished() {
			return false
		}
	}
	return true
}

// ProcessOneRound fans the set of LPs whose next event timestamp is at or
// below the current grant out to the worker pool, and blocks until every worker
// has gone idle. Distinct LPs run in parallel; a single LP is never
// executed by two workers at once because each LP appears at most once in
// the work queue per round.
//
// Fairness: the work queue is a plain FIFO slice consumed by index, so
// eligible LPs are handed out in a fixed order (ascending LP id) every
// round -- no worker can
// repeatedly claim the same LP and starve another.
func (d *Dispatcher) ProcessOneRound() int {
	grant := d.Grant()

	d.mu.Lock()
	eligible := make([]*lp.LogicalProcess, 0, len(d.lps))
	for id, proc := range d.lps {
		if id == lp.StagingID {
			continue
		}
		if ts, ok := proc.NextTimestamp(); ok && ts <= grant {
			eligible = append(eligible, proc)
		}
	}
	d.mu.Unlock()
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].LocalID < eligible[j].LocalID })

	if len(eligible) == 0 {
		return 0
	}

	var nextIdx int64 = -1
	totalExecuted := int64(0)

	var wg sync.WaitGroup
	workers := d.threadCount
	if workers > len(eligible) {
		workers = len(eligible)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for {
				idx := atomic.AddInt64(&nextIdx, 1)
				if int(idx) >= len(eligible) {
					return
				}
				proc := eligible[idx]
				d.currentLP[slot].Store(proc)
				n := proc.ProcessOneRound(grant)
				d.currentLP[slot].Store(nil)
				atomic.AddInt64(&totalExecuted, int64(n))
			}
		}(w)
	}
	wg.Wait()

	logrus.Debugf("dispatcher: round grant=%d eligible=%d executed=%d", grant, len(eligible), totalExecuted)
	return int(totalExecuted)
}

// CurrentLP returns the LP the calling worker slot is presently executing,
// or nil outside of a round. Intended for Simulator::Now()-style queries
// from within event payloads.
func (d *Dispatcher) CurrentLP(slot int) *lp.LogicalProcess {
	if slot < 0 || slot >= len(d.currentLP) {
		return nil
	}
	return d.currentLP[slot].Load()
}

// TotalEventCount sums EventCount() over every local LP, for the run
// report (metrics.Report).
func (d *Dispatcher) TotalEventCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total uint64
	for id, proc := range d.lps {
		if id == lp.StagingID {
			continue
		}
		total += proc.EventCount()
	}
	return total
}

// PushDestroy enqueues a DESTROY-uid event onto the process-wide destroy
// queue, under the same critical section that protects the LP table.
func (d *Dispatcher) PushDestroy(e *event.Event) {
	d.mu.Lock()
	d.destroyQueue = append(d.destroyQueue, e)
	d.mu.Unlock()
}

// DrainDestroyQueue empties and returns the destroy queue. Called only at
// shutdown.
func (d *Dispatcher) DrainDestroyQueue() []*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.destroyQueue
	d.destroyQueue = nil
	return q
}
