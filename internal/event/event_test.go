package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var fired bool
	e := New(5, 7, 1, 0, func() { fired = true })
	require.Equal(t, int64(5), e.Timestamp)
	require.Equal(t, uint32(7), e.Context)
	require.Equal(t, uint64(1), e.Sequence)
	require.False(t, e.Cancelled)

	e.Payload()
	require.True(t, fired)
}

func TestID(t *testing.T) {
	e := New(0, NoContext, 42, 0, nil)
	require.Equal(t, ID(42), e.ID())
}

func TestCancel(t *testing.T) {
	e := New(0, NoContext, 1, 0, nil)
	require.False(t, e.Cancelled)
	e.Cancel()
	require.True(t, e.Cancelled)
}

func TestLess_ByTimestamp(t *testing.T) {
	a := New(1, NoContext, 5, 0, nil)
	b := New(2, NoContext, 1, 0, nil)
	require.True(t, Less(a, b))
	require.False(t, Less(b, a))
}

func TestLess_TieBreakBySequence(t *testing.T) {
	a := New(5, NoContext, 1, 0, nil)
	b := New(5, NoContext, 2, 0, nil)
	require.True(t, Less(a, b))
	require.False(t, Less(b, a))
}

func TestDestroyUID_IsDistinguished(t *testing.T) {
	e := New(0, NoContext, 1, DestroyUID, nil)
	require.Equal(t, DestroyUID, e.UID)
}
