package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/hybrid-des/internal/event"
)

func mkEvent(ts int64, seq uint64) *event.Event {
	return event.New(ts, event.NoContext, seq, 0, nil)
}

func testOrdering(t *testing.T, kind Kind) {
	s := New(kind)
	s.Insert(mkEvent(100, 1))
	s.Insert(mkEvent(50, 2))
	s.Insert(mkEvent(150, 3))

	require.Equal(t, int64(50), s.RemoveNext().Timestamp)
	require.Equal(t, int64(100), s.RemoveNext().Timestamp)
	require.Equal(t, int64(150), s.RemoveNext().Timestamp)
	require.True(t, s.IsEmpty())
}

func TestHeapScheduler_Ordering(t *testing.T) { testOrdering(t, KindHeap) }
func TestMapScheduler_Ordering(t *testing.T)  { testOrdering(t, KindMap) }

func testSequenceTieBreak(t *testing.T, kind Kind) {
	s := New(kind)
	s.Insert(mkEvent(100, 2))
	s.Insert(mkEvent(100, 1))

	require.Equal(t, uint64(1), s.RemoveNext().Sequence)
	require.Equal(t, uint64(2), s.RemoveNext().Sequence)
}

func TestHeapScheduler_SequenceTieBreak(t *testing.T) { testSequenceTieBreak(t, KindHeap) }
func TestMapScheduler_SequenceTieBreak(t *testing.T)  { testSequenceTieBreak(t, KindMap) }

func testRemoveByID(t *testing.T, kind Kind) {
	s := New(kind)
	e1 := mkEvent(10, 1)
	e2 := mkEvent(20, 2)
	s.Insert(e1)
	s.Insert(e2)

	require.True(t, s.RemoveByID(e1.ID()))
	require.False(t, s.RemoveByID(e1.ID())) // idempotent: already gone
	require.False(t, s.RemoveByID(event.ID(999)))

	require.Equal(t, 1, s.Len())
	require.Equal(t, e2, s.PeekNext())
}

func TestHeapScheduler_RemoveByID(t *testing.T) { testRemoveByID(t, KindHeap) }
func TestMapScheduler_RemoveByID(t *testing.T)  { testRemoveByID(t, KindMap) }

func TestNew_UnknownKindDefaultsToHeap(t *testing.T) {
	s := New(Kind("bogus"))
	_, ok := s.(*heapScheduler)
	require.True(t, ok)
}

func TestPeekNext_EmptyReturnsNil(t *testing.T) {
	for _, kind := range []Kind{KindHeap, KindMap} {
		s := New(kind)
		require.Nil(t, s.PeekNext())
		require.Nil(t, s.RemoveNext())
	}
}
