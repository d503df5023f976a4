package ibfe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

func jumpOptions(mode JumpImposition) Options {
	o := DefaultOptions()
	o.SplitNormalForce = true
	o.SplitTangentialForce = true
	o.UseJumpConditions = true
	o.JumpMode = mode
	o.Mu = 0.01
	o.UseConsistentMassMatrix = true
	return o
}

// maxRingForceOutsideBand returns the largest force magnitude in cells whose
// radial distance from the ring differs from r by more than band.
func maxRingForceOutsideBand(h *grid.UniformHierarchy, fIdx int, cx, cy, r, band float64) float64 {
	f := h.Field(fIdx)
	box := h.Box()
	dx := h.DX()
	worst := 0.0
	for i := box.Lo[0]; i <= box.Hi[0]; i++ {
		for j := box.Lo[1]; j <= box.Hi[1]; j++ {
			x := (float64(i) + 0.5) * dx[0]
			y := (float64(j) + 0.5) * dx[1]
			if math.Abs(math.Hypot(x-cx, y-cy)-r) <= band {
				continue
			}
			c := grid.Index{i, j, 0}
			v := math.Hypot(f.At(c, 0), f.At(c, 1))
			if v > worst {
				worst = v
			}
		}
	}
	return worst
}

func TestWeakJumpImpositionIsLocalAndConservative(t *testing.T) {
	const k = 10.0
	mesh := ringMesh(48, 0.5, 0.5, 0.2)
	m, err := NewMethod("m", jumpOptions(JumpWeak), []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterPK1StressFunction(0, linearSpringPK1(k))
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)

	// All deposits stay within the kernel support of the surface.
	band := 3.5 * h.DX()[0]
	assert.Zero(t, maxRingForceOutsideBand(h, fIdx, 0.5, 0.5, 0.2, band))

	// The imposed traction of a closed surface under uniform normal load
	// integrates to zero total force.
	f := h.Field(fIdx)
	box := h.Box()
	vol := h.DX()[0] * h.DX()[1]
	var sx, sy float64
	for i := box.Lo[0]; i <= box.Hi[0]; i++ {
		for j := box.Lo[1]; j <= box.Hi[1]; j++ {
			sx += f.At(grid.Index{i, j, 0}, 0) * vol
			sy += f.At(grid.Index{i, j, 0}, 1) * vol
		}
	}
	assert.InDelta(t, 0, sx, 1e-9)
	assert.InDelta(t, 0, sy, 1e-9)
}

func TestPointwiseJumpImpositionDepositsAtCrossings(t *testing.T) {
	// An inclined open string crosses grid lines in both directions; the
	// pointwise corrections land only in cells adjacent to the string.
	const k = 10.0
	nodes := []fe.Point{}
	elems := [][]int{}
	const nn = 17
	for i := 0; i < nn; i++ {
		s := float64(i) / float64(nn-1)
		nodes = append(nodes, fe.Point{0.2 + 0.6*s, 0.45 + 0.1*s})
	}
	for i := 0; i < nn-1; i++ {
		elems = append(elems, []int{i, i + 1})
	}
	mesh := fe.NewMesh(2, fe.Edge2, nodes, elems)

	m, err := NewMethod("m", jumpOptions(JumpPointwise), []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterPK1StressFunction(0, linearSpringPK1(k))
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)

	// Every nonzero cell lies within the kernel support of the string.
	f := h.Field(fIdx)
	box := h.Box()
	dx := h.DX()
	reach := 3.5 * dx[0]
	for i := box.Lo[0]; i <= box.Hi[0]; i++ {
		for j := box.Lo[1]; j <= box.Hi[1]; j++ {
			c := grid.Index{i, j, 0}
			if f.At(c, 0) == 0 && f.At(c, 1) == 0 {
				continue
			}
			x := (float64(i) + 0.5) * dx[0]
			y := (float64(j) + 0.5) * dx[1]
			// Distance from the cell center to the string line y = 0.45+x/6,
			// clamped to the string's x extent.
			xs := math.Min(math.Max(x, 0.2), 0.8)
			d := math.Hypot(x-xs, y-(0.45+(xs-0.2)/6))
			assert.LessOrEqual(t, d, reach, "cell (%d,%d) received a deposit far from the string", i, j)
		}
	}
}

func TestPointwiseJumpRejectedInThreeDimensions(t *testing.T) {
	nodes := []fe.Point{{0.4, 0.4, 0.5}, {0.6, 0.4, 0.5}, {0.5, 0.6, 0.5}}
	mesh := fe.NewMesh(3, fe.Tri3, nodes, [][]int{{0, 1, 2}})
	_, err := NewMethod("m", jumpOptions(JumpPointwise), []*fe.Mesh{mesh}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available in 2D")

	_, err = NewMethod("m", jumpOptions(JumpWeak), []*fe.Mesh{mesh}, nil)
	assert.NoError(t, err)
}

func TestSubResolutionSurfaceIsDroppedNotFatal(t *testing.T) {
	// A ring much smaller than one grid cell crosses no grid line: the
	// pointwise imposition contributes nothing, and the step still succeeds.
	const k = 10.0
	mesh := ringMesh(8, 0.516, 0.516, 0.004)
	m, err := NewMethod("m", jumpOptions(JumpPointwise), []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterPK1StressFunction(0, linearSpringPK1(k))
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)
}

// runHigherOrderJump spreads the force of a stretched elastic ring in
// higher-order jump mode, optionally zeroing the second-derivative jump
// fields between assembly and imposition. Returns the grid force field and
// whether those fields held nonzero data before imposition.
func runHigherOrderJump(t *testing.T, mode JumpImposition, suppress bool) (*grid.CellField, bool) {
	t.Helper()
	const k = 10.0
	mesh := ringMesh(48, 0.5, 0.5, 0.2)
	o := jumpOptions(mode)
	o.UseHigherOrderJump = true
	m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterInitialCoordinateMapping(0, func(X fe.Point) fe.Point {
		return fe.Point{0.5 + 1.2*(X[0]-0.5), X[1]}
	})
	m.RegisterPK1StressFunction(0, linearSpringPK1(k))
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	m.PreprocessIntegrateData(0, 1e-3)
	require.NoError(t, m.InterpolateVelocity(uIdx, []grid.Schedule{h.FillSchedule(uIdx)}, 0))
	m.ForwardEulerStep(0, 1e-3)
	m.ComputeLagrangianForce(5e-4)

	nonzero := false
	for _, kind := range []fields.Kind{fields.D2UJump, fields.D2VJump} {
		v := m.Store().V(0, kind, fields.Half)
		for i := 0; i < v.Len(); i++ {
			if v.At(i) != 0 {
				nonzero = true
			}
		}
		if suppress {
			v.Zero()
		}
	}
	require.NoError(t, m.SpreadForce(fIdx, []grid.Schedule{h.AccumulateSchedule(fIdx)}, 5e-4))
	m.PostprocessIntegrateData(0, 1e-3)
	return h.Field(fIdx), nonzero
}

func maxFieldDiff(a, b *grid.CellField) float64 {
	worst := 0.0
	box := a.Box()
	for i := box.Lo[0]; i <= box.Hi[0]; i++ {
		for j := box.Lo[1]; j <= box.Hi[1]; j++ {
			c := grid.Index{i, j, 0}
			for d := 0; d < 2; d++ {
				if diff := math.Abs(a.At(c, d) - b.At(c, d)); diff > worst {
					worst = diff
				}
			}
		}
	}
	return worst
}

func TestHigherOrderFieldsEnterPointwiseImposition(t *testing.T) {
	// A stretched ring carries varying velocity-gradient jumps, so their
	// surface derivatives are nonzero and the Taylor correction must change
	// the imposed force.
	full, nonzero := runHigherOrderJump(t, JumpPointwise, false)
	assert.True(t, nonzero, "derivative-jump fields were not assembled")
	suppressed, _ := runHigherOrderJump(t, JumpPointwise, true)
	assert.Greater(t, maxFieldDiff(full, suppressed), 1e-12)
}

func TestHigherOrderFieldsEnterWeakImposition(t *testing.T) {
	full, nonzero := runHigherOrderJump(t, JumpWeak, false)
	assert.True(t, nonzero, "derivative-jump fields were not assembled")
	suppressed, _ := runHigherOrderJump(t, JumpWeak, true)
	assert.Greater(t, maxFieldDiff(full, suppressed), 1e-12)
}

func TestHigherOrderJumpRegistersSecondDerivativeFields(t *testing.T) {
	o := jumpOptions(JumpPointwise)
	o.UseHigherOrderJump = true
	mesh := ringMesh(24, 0.5, 0.5, 0.2)
	m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterPK1StressFunction(0, linearSpringPK1(10))
	m.InitializeEquationSystems()
	m.InitializeData()

	assert.True(t, m.Store().Registered(0, fields.DPressureJump))
	assert.True(t, m.Store().Registered(0, fields.D2UJump))
	assert.True(t, m.Store().Registered(0, fields.D2VJump))

	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)
	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)

	// Uniform normal load on a circle: the surface pressure-jump derivative
	// is zero.
	dpj := m.Store().V(0, fields.DPressureJump, fields.Current)
	for n := 0; n < mesh.NumNodes(); n++ {
		assert.InDelta(t, 0, dpj.At(n), 1e-8)
	}
}
