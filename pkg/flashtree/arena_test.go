package flashtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocFreeRoundTrip(t *testing.T) {
	a, err := NewArena(4)
	require.NoError(t, err)
	require.Equal(t, 4, a.Cap())

	idx, err := a.Alloc()
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)

	a.Free(idx)
	idx2, err := a.Alloc()
	require.NoError(t, err)
	require.Equal(t, idx, idx2)
}

func TestArenaExhaustion(t *testing.T) {
	a, err := NewArena(2)
	require.NoError(t, err)
	_, err = a.Alloc()
	require.NoError(t, err)
	_, err = a.Alloc()
	require.NoError(t, err)
	_, err = a.Alloc()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestArenaCapacityOutOfRangeIsFatal(t *testing.T) {
	_, err := NewArena(int(EMPTY) + 1)
	require.ErrorIs(t, err, ErrFatal)
}

func TestArenaFreeChainOrder(t *testing.T) {
	a, err := NewArena(3)
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 1, 2}, a.freeChain())

	idx, err := a.Alloc()
	require.NoError(t, err)
	require.Equal(t, []uint16{1, 2}, a.freeChain())

	a.Free(idx)
	require.Equal(t, []uint16{0, 1, 2}, a.freeChain())
}
