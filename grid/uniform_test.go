package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHierarchy(t *testing.T) (*UniformHierarchy, int) {
	t.Helper()
	h := NewUniform(2, Index{8, 8, 0}, [3]float64{0, 0, 0}, [3]float64{1, 1, 0}, 2)
	idx := h.AddField(2)
	return h, idx
}

func TestCellIndexPeriodicWrap(t *testing.T) {
	h, _ := testHierarchy(t)
	assert.Equal(t, Index{0, 0, 0}, h.CellIndex([3]float64{0.01, 0.01, 0}))
	assert.Equal(t, Index{7, 7, 0}, h.CellIndex([3]float64{-0.01, 0.99, 0}))
	assert.Equal(t, Index{1, 0, 0}, h.CellIndex([3]float64{1.2, 8.0, 0}))
}

func TestGhostFillPeriodic(t *testing.T) {
	h, idx := testHierarchy(t)
	f := h.Field(idx)
	f.Set(Index{0, 3, 0}, 1, 7.5)

	require.NoError(t, h.FillSchedule(idx).Fill())
	// The ghost cell at i=-8+0=8 wraps onto column 0.
	assert.Equal(t, 7.5, f.At(Index{8, 3, 0}, 1))
	assert.Equal(t, 7.5, f.At(Index{0, 3, 0}, 1))
}

func TestGhostAccumulateIsAdjointOfFill(t *testing.T) {
	h, idx := testHierarchy(t)
	f := h.Field(idx)
	// Deposit into a ghost cell; after accumulation the interior image holds
	// the sum and the ghost is cleared.
	f.Add(Index{-1, 2, 0}, 0, 2.0)
	f.Add(Index{7, 2, 0}, 0, 3.0)

	require.NoError(t, h.AccumulateSchedule(idx).Fill())
	assert.Equal(t, 5.0, f.At(Index{7, 2, 0}, 0))
	assert.Equal(t, 0.0, f.At(Index{-1, 2, 0}, 0))
}

func TestFindPatchRejectsNonFinite(t *testing.T) {
	h, _ := testHierarchy(t)
	_, _, ok := h.FindPatch([3]float64{0.5, 0.5, 0})
	assert.True(t, ok)
	nan := 0.0
	nan = nan / nan
	_, _, ok = h.FindPatch([3]float64{nan, 0.5, 0})
	assert.False(t, ok)
}

func TestFieldIndexBounds(t *testing.T) {
	h, idx := testHierarchy(t)
	f := h.Field(idx)
	assert.Panics(t, func() { f.At(Index{20, 0, 0}, 0) })
	assert.Panics(t, func() { f.At(Index{0, 0, 0}, 5) })
	assert.Panics(t, func() { h.Field(idx + 1) })
}
