package ibfe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

// linearSpringPK1 is a simple constitutive law with a nonzero transmission
// traction on codimension-one structures: P = k (F - I).
func linearSpringPK1(k float64) PK1StressFn {
	return func(F *mat.Dense, X fe.Point, t float64) *mat.Dense {
		d, _ := F.Dims()
		P := mat.NewDense(d, d, nil)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				v := k * F.At(i, j)
				if i == j {
					v -= k
				}
				P.Set(i, j, v)
			}
		}
		return P
	}
}

func TestSplitDecompositionOnCircle(t *testing.T) {
	// On an undeformed circle, P = k(F - I) reduces to a pure normal
	// traction of magnitude k: the pressure jump is -k at every node and the
	// tangential transmission force vanishes.
	const k = 10.0
	o := DefaultOptions()
	o.SplitNormalForce = true
	o.SplitTangentialForce = true
	o.UseConsistentMassMatrix = true

	mesh := ringMesh(24, 0.5, 0.5, 0.2)
	m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterPK1StressFunction(0, linearSpringPK1(k))
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)

	pj := m.Store().V(0, fields.PressureJump, fields.Current)
	fn := m.Store().V(0, fields.ForceN, fields.Current)
	ft := m.Store().V(0, fields.ForceT, fields.Current)
	for n := 0; n < mesh.NumNodes(); n++ {
		assert.InDelta(t, -k, pj.At(n), 1e-9, "pressure jump at node %d", n)
		assert.InDelta(t, 0, ft.At(n*2), 1e-9)
		assert.InDelta(t, 0, ft.At(n*2+1), 1e-9)

		// Normal transmission force points inward with magnitude near k.
		th := 2 * math.Pi * float64(n) / 24
		radial := fn.At(n*2)*math.Cos(th) + fn.At(n*2+1)*math.Sin(th)
		assert.Less(t, radial, -0.9*k, "node %d", n)
		assert.Greater(t, radial, -1.1*k, "node %d", n)
	}
}

func TestSplitAndUnsplitSpreadTheSameTotalForce(t *testing.T) {
	// With jump conditions off, the split assembly factors the transmission
	// force into separate fields but spreads all of them: the resulting grid
	// force is identical to the unsplit run.
	const k = 10.0
	mesh := ringMesh(24, 0.5, 0.5, 0.2)
	stretch := func(X fe.Point) fe.Point {
		return fe.Point{0.5 + 1.15*(X[0]-0.5), X[1]}
	}

	run := func(split bool) *grid.CellField {
		o := DefaultOptions()
		o.UseConsistentMassMatrix = true
		if split {
			o.SplitNormalForce = true
			o.SplitTangentialForce = true
		}
		m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
		require.NoError(t, err)
		m.RegisterInitialCoordinateMapping(0, stretch)
		m.RegisterPK1StressFunction(0, linearSpringPK1(k))
		m.InitializeEquationSystems()
		m.InitializeData()
		h, uIdx, fIdx := testGrid(32)
		m.InitializePatchHierarchy(h)
		forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)
		return h.Field(fIdx)
	}

	fSplit := run(true)
	fUnsplit := run(false)
	box := grid.Box{Hi: grid.Index{31, 31, 0}}
	for i := box.Lo[0]; i <= box.Hi[0]; i++ {
		for j := box.Lo[1]; j <= box.Hi[1]; j++ {
			c := grid.Index{i, j, 0}
			for d := 0; d < 2; d++ {
				assert.InDelta(t, fUnsplit.At(c, d), fSplit.At(c, d),
					1e-9*(1+math.Abs(fUnsplit.At(c, d))), "cell %v component %d", c, d)
			}
		}
	}
}

func TestCollapsedElementContributesNoForce(t *testing.T) {
	// Collapsing one segment to a point must not poison the assembly with
	// NaNs; the degenerate element is skipped.
	const k = 5.0
	mesh := ringMesh(16, 0.5, 0.5, 0.2)
	m, err := NewMethod("m", DefaultOptions(), []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterPK1StressFunction(0, linearSpringPK1(k))
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	// Collapse nodes 0 and 1 of the current configuration.
	x := m.Store().V(0, fields.Coords, fields.Current)
	x.Set(2, x.At(0))
	x.Set(3, x.At(1))

	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)

	f := m.Store().V(0, fields.Force, fields.Current)
	for i := 0; i < f.Len(); i++ {
		assert.False(t, math.IsNaN(f.At(i)), "force component %d is NaN", i)
	}
}

func TestBodyForceIsMeasureWeighted(t *testing.T) {
	// A constant body force density projects back to exactly that constant
	// at the nodes regardless of element sizes.
	mesh := stringMesh(7, 0.3, 0.5, 0.4)
	o := DefaultOptions()
	o.UseConsistentMassMatrix = true
	m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.RegisterLagBodyForceFunction(0, func(tm float64, X, x fe.Point) [3]float64 {
		return [3]float64{0, -9.8}
	})
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, fIdx := testGrid(32)
	m.InitializePatchHierarchy(h)

	forwardEulerCycle(t, m, h, uIdx, fIdx, 0, 1e-3)

	f := m.Store().V(0, fields.Force, fields.Current)
	for n := 0; n < mesh.NumNodes(); n++ {
		assert.InDelta(t, 0, f.At(n*2), 1e-10)
		assert.InDelta(t, -9.8, f.At(n*2+1), 1e-10)
	}
}
