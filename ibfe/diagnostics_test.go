package ibfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

func TestWallShearStressInLinearShearFlow(t *testing.T) {
	// A horizontal string immersed in u = (gamma (y - 0.5), 0): the one-sided
	// tangential differences on both sides give wss = -mu gamma e_x, exactly,
	// because kernel interpolation reproduces affine fields.
	const mu = 0.01
	const gamma = 2.0

	o := DefaultOptions()
	o.SplitNormalForce = true
	o.Mu = mu
	mesh := stringMesh(9, 0.3, 0.5, 0.4)
	m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, _ := testGrid(32)
	m.InitializePatchHierarchy(h)
	setVelocity(h, uIdx, func(x, y float64) (float64, float64) {
		return gamma * (y - 0.5), 0
	})

	require.NoError(t, m.ComputeWallShearStress(uIdx, []grid.Schedule{h.FillSchedule(uIdx)}, 0))

	wssIn := m.Store().V(0, fields.WSSIn, fields.Current)
	wssOut := m.Store().V(0, fields.WSSOut, fields.Current)
	for n := 0; n < mesh.NumNodes(); n++ {
		assert.InDelta(t, -mu*gamma, wssIn.At(n*2), 1e-10, "node %d", n)
		assert.InDelta(t, 0, wssIn.At(n*2+1), 1e-10)
		assert.InDelta(t, -mu*gamma, wssOut.At(n*2), 1e-10, "node %d", n)
		assert.InDelta(t, 0, wssOut.At(n*2+1), 1e-10)
	}
}

func TestFluidTractionCombinesPressureAndShear(t *testing.T) {
	// With p = beta (y - 0.5) and no shear, the traction on a horizontal
	// string with downward normal is (p_in - p_out) n = -2 beta dist e_y.
	const mu = 0.01
	const beta = 3.0

	o := DefaultOptions()
	o.SplitNormalForce = true
	o.Mu = mu
	mesh := stringMesh(9, 0.3, 0.5, 0.4)
	m, err := NewMethod("m", o, []*fe.Mesh{mesh}, nil)
	require.NoError(t, err)
	m.InitializeEquationSystems()
	m.InitializeData()
	h, uIdx, _ := testGrid(32)
	pIdx := h.AddField(1)
	m.InitializePatchHierarchy(h)

	// Quiescent fluid: wall shear stress is zero.
	require.NoError(t, m.ComputeWallShearStress(uIdx, []grid.Schedule{h.FillSchedule(uIdx)}, 0))

	pf := h.Field(pIdx)
	box := h.Box()
	dx := h.DX()
	for i := box.Lo[0]; i <= box.Hi[0]; i++ {
		for j := box.Lo[1]; j <= box.Hi[1]; j++ {
			y := (float64(j) + 0.5) * dx[1]
			pf.Set(grid.Index{i, j, 0}, 0, beta*(y-0.5))
		}
	}

	require.NoError(t, m.ComputeFluidTraction(pIdx, []grid.Schedule{h.FillSchedule(pIdx)}, 0))

	dist := o.VelInterpWidth * dx[0]
	tau := m.Store().V(0, fields.Traction, fields.Current)
	for n := 0; n < mesh.NumNodes(); n++ {
		assert.InDelta(t, 0, tau.At(n*2), 1e-10)
		assert.InDelta(t, -2*beta*dist, tau.At(n*2+1), 1e-10, "node %d", n)
	}
}

func TestDiagnosticsRequireSplitConfiguration(t *testing.T) {
	mesh := ringMesh(8, 0.5, 0.5, 0.2)
	m := newTestMethod(t, DefaultOptions(), mesh)
	h, uIdx, _ := testGrid(32)
	m.InitializePatchHierarchy(h)
	assert.Panics(t, func() {
		_ = m.ComputeWallShearStress(uIdx, nil, 0)
	})
	assert.Panics(t, func() {
		_ = m.ComputeFluidTraction(uIdx, nil, 0)
	})
}
