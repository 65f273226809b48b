package dispatcher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/hybrid-des/internal/lp"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
)

func TestEnableNew_CapsThreadCountToLPCount(t *testing.T) {
	d := New(8, scheduler.KindHeap, 1)
	d.EnableNew(3, scheduler.KindHeap, 1)
	require.Equal(t, 3, d.ThreadCount())
	require.Equal(t, 3, d.NumLPs())
}

func TestCalculateSmallestTime_AcrossLPs(t *testing.T) {
	d := New(4, scheduler.KindHeap, 1)
	d.EnableNew(2, scheduler.KindHeap, 1)

	require.NoError(t, d.LP(1).Schedule(10, func() {}))
	require.NoError(t, d.LP(2).Schedule(5, func() {}))

	require.Equal(t, int64(5), d.CalculateSmallestTime())
}

func TestCalculateSmallestTime_AllIdleReturnsMax(t *testing.T) {
	d := New(2, scheduler.KindHeap, 1)
	d.EnableNew(2, scheduler.KindHeap, 1)
	require.Equal(t, int64(1)<<62, d.CalculateSmallestTime())
}

// TestProcessOneRound_ParallelDistinctLPs hands four distinct LPs, each with
// one event below the grant, to a four-worker pool and checks that one
// round executes all four events.
func TestProcessOneRound_ParallelDistinctLPs(t *testing.T) {
	d := New(4, scheduler.KindHeap, 1)
	const numLPs = 4
	d.EnableNew(numLPs, scheduler.KindHeap, 1)

	var mu sync.Mutex
	inFlight := make(map[lp.ID]bool)
	var sawConcurrentMax int

	for i := 1; i <= numLPs; i++ {
		id := lp.ID(i)
		require.NoError(t, d.LP(id).Schedule(1, func() {
			mu.Lock()
			inFlight[id] = true
			if len(inFlight) > sawConcurrentMax {
				sawConcurrentMax = len(inFlight)
			}
			mu.Unlock()
		}))
	}

	d.SetSmallestTime(100)
	executed := d.ProcessOneRound()
	require.Equal(t, numLPs, executed)
}

func TestProcessOneRound_RespectsGrant(t *testing.T) {
	d := New(2, scheduler.KindHeap, 1)
	d.EnableNew(1, scheduler.KindHeap, 1)

	require.NoError(t, d.LP(1).Schedule(10, func() {}))
	d.SetSmallestTime(5) // below the scheduled event's timestamp

	executed := d.ProcessOneRound()
	require.Equal(t, 0, executed)
	require.False(t, d.IsFinished())
}

func TestIsFinished(t *testing.T) {
	d := New(2, scheduler.KindHeap, 1)
	d.EnableNew(1, scheduler.KindHeap, 1)
	require.True(t, d.IsFinished())

	require.NoError(t, d.LP(1).Schedule(1, func() {}))
	require.False(t, d.IsFinished())

	d.SetSmallestTime(100)
	d.ProcessOneRound()
	require.True(t, d.IsFinished())
}

func TestDestroyQueue(t *testing.T) {
	d := New(1, scheduler.KindHeap, 1)
	d.EnableNew(1, scheduler.KindHeap, 1)
	require.Empty(t, d.DrainDestroyQueue())
}
