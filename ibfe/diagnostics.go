package ibfe

import (
	"fmt"
	"math"

	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

// ComputeWallShearStress samples the fluid velocity a short distance off the
// structure surface on both sides and fills the interior/exterior
// wall-shear-stress fields with the viscosity-scaled tangential velocity
// differences. Available for split-force (codimension-one) configurations.
func (m *Method) ComputeWallShearStress(uIdx int, scheds []grid.Schedule, t float64) error {
	if !m.hierarchyInitialized {
		panic(fmt.Sprintf("%s: ComputeWallShearStress requires InitializePatchHierarchy", m.name))
	}
	if !m.opts.SplitForce() {
		panic(fmt.Sprintf("%s: wall shear stress requires split-force configuration", m.name))
	}
	for _, s := range scheds {
		if err := s.Fill(); err != nil {
			return fmt.Errorf("%s: velocity ghost fill: %w", m.name, err)
		}
	}
	snap := m.snapshotAt(t)
	dim := m.Dim()

	for p := 0; p < m.NumParts(); p++ {
		mesh := m.meshes[p]
		x := m.store.V(p, fields.Coords, snap)
		normals := m.nodalNormals(p, snap)
		wssIn := m.store.V(p, fields.WSSIn, snap)
		wssOut := m.store.V(p, fields.WSSOut, snap)

		us := make([]float64, dim)
		uin := make([]float64, dim)
		uout := make([]float64, dim)
		kern := m.interpSpec[p].Kernel
		for n := 0; n < mesh.NumNodes(); n++ {
			xs := nodePoint(x.Data(), n, dim)
			patch, _, err := m.locate(xs)
			if err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}
			h := 0.0
			for d := 0; d < dim; d++ {
				if patch.DX()[d] > h {
					h = patch.DX()[d]
				}
			}
			dist := m.opts.VelInterpWidth * h

			var xin, xout [3]float64
			for d := 0; d < dim; d++ {
				xin[d] = xs[d] - dist*normals[n*dim+d]
				xout[d] = xs[d] + dist*normals[n*dim+d]
			}
			if err := m.sampleGrid(uIdx, kern, xs, us); err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}
			if err := m.sampleGrid(uIdx, kern, xin, uin); err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}
			if err := m.sampleGrid(uIdx, kern, xout, uout); err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}

			// Tangential projection of the one-sided differences.
			nin := 0.0
			nout := 0.0
			for d := 0; d < dim; d++ {
				nin += (us[d] - uin[d]) * normals[n*dim+d]
				nout += (uout[d] - us[d]) * normals[n*dim+d]
			}
			for d := 0; d < dim; d++ {
				tin := (us[d] - uin[d]) - nin*normals[n*dim+d]
				tout := (uout[d] - us[d]) - nout*normals[n*dim+d]
				wssIn.Set(n*dim+d, m.opts.Mu*tin/dist)
				wssOut.Set(n*dim+d, m.opts.Mu*tout/dist)
			}
		}
	}
	return nil
}

// ComputeFluidTraction combines the pressure sampled on both sides of the
// surface with the wall-shear-stress fields into the total fluid traction
// field. ComputeWallShearStress must run first at the same time level.
func (m *Method) ComputeFluidTraction(pIdx int, scheds []grid.Schedule, t float64) error {
	if !m.hierarchyInitialized {
		panic(fmt.Sprintf("%s: ComputeFluidTraction requires InitializePatchHierarchy", m.name))
	}
	if !m.opts.SplitForce() {
		panic(fmt.Sprintf("%s: fluid traction requires split-force configuration", m.name))
	}
	for _, s := range scheds {
		if err := s.Fill(); err != nil {
			return fmt.Errorf("%s: pressure ghost fill: %w", m.name, err)
		}
	}
	snap := m.snapshotAt(t)
	dim := m.Dim()

	for p := 0; p < m.NumParts(); p++ {
		mesh := m.meshes[p]
		x := m.store.V(p, fields.Coords, snap)
		normals := m.nodalNormals(p, snap)
		wssIn := m.store.V(p, fields.WSSIn, snap)
		wssOut := m.store.V(p, fields.WSSOut, snap)
		tau := m.store.V(p, fields.Traction, snap)

		pin := make([]float64, 1)
		pout := make([]float64, 1)
		kern := m.interpSpec[p].Kernel
		for n := 0; n < mesh.NumNodes(); n++ {
			xs := nodePoint(x.Data(), n, dim)
			patch, _, err := m.locate(xs)
			if err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}
			h := 0.0
			for d := 0; d < dim; d++ {
				if patch.DX()[d] > h {
					h = patch.DX()[d]
				}
			}
			dist := m.opts.VelInterpWidth * h

			var xin, xout [3]float64
			for d := 0; d < dim; d++ {
				xin[d] = xs[d] - dist*normals[n*dim+d]
				xout[d] = xs[d] + dist*normals[n*dim+d]
			}
			if err := m.sampleGrid(pIdx, kern, xin, pin); err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}
			if err := m.sampleGrid(pIdx, kern, xout, pout); err != nil {
				return fmt.Errorf("%s: part %d node %d: %w", m.name, p, n, err)
			}
			for d := 0; d < dim; d++ {
				tau.Set(n*dim+d,
					(pin[0]-pout[0])*normals[n*dim+d]+wssOut.At(n*dim+d)-wssIn.At(n*dim+d))
			}
		}
	}
	return nil
}

// nodalNormals assembles area-weighted unit normals at the nodes of a
// codimension-one part.
func (m *Method) nodalNormals(p int, snap fields.Snapshot) []float64 {
	mesh := m.meshes[p]
	dim := m.Dim()
	x := m.store.V(p, fields.Coords, snap)
	rule := m.forceRule(mesh.Type)
	normals := make([]float64, mesh.NumNodes()*dim)

	for _, conn := range mesh.Elems {
		for qp := 0; qp < rule.Len(); qp++ {
			g := fe.EvalGeom(mesh, conn, x.Data(), rule.Points[qp], rule.Weights[qp])
			if g.Degenerate {
				continue
			}
			phi := fe.Shape(mesh.Type, rule.Points[qp])
			for a, na := range conn {
				for d := 0; d < dim; d++ {
					normals[na*dim+d] += phi[a] * g.Normal[d] * g.JxW
				}
			}
		}
	}
	for n := 0; n < mesh.NumNodes(); n++ {
		l := 0.0
		for d := 0; d < dim; d++ {
			l += normals[n*dim+d] * normals[n*dim+d]
		}
		if l == 0 {
			continue
		}
		l = math.Sqrt(l)
		for d := 0; d < dim; d++ {
			normals[n*dim+d] /= l
		}
	}
	return normals
}
