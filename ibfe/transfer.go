package ibfe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Changwei1996/ibfe/delta"
	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

// InterpolateVelocity gathers the Eulerian velocity field onto every
// quadrature point of every part and stores the result in the velocity
// snapshot matching t. The caller must have scheduled ghost fills for uIdx;
// the supplied schedules are executed first and block until complete.
//
// A structure point outside the hierarchy is a fatal geometry error: the
// explicit step outran the local CFL limit. The step fails; the caller is
// expected to restart from the last committed state with a smaller step.
func (m *Method) InterpolateVelocity(uIdx int, scheds []grid.Schedule, t float64) error {
	m.requirePhase("InterpolateVelocity", phasePre, phaseVelocityInterpolated, phasePositionAdvanced)
	for _, s := range scheds {
		if err := s.Fill(); err != nil {
			return fmt.Errorf("%s: velocity ghost fill: %w", m.name, err)
		}
	}
	snap := m.snapshotAt(t)
	dim := m.Dim()

	for p := 0; p < m.NumParts(); p++ {
		err := func() error {
			defer m.store.DropGhosts(p)
			xg := m.store.Ghost(p, fields.Coords, snap)
			u := m.store.V(p, fields.Velocity, snap)
			spec := m.interpSpec[p]
			mesh := m.meshes[p]

			if spec.QuadType == delta.NodalQuadrature {
				uq := make([]float64, dim)
				for n := 0; n < mesh.NumNodes(); n++ {
					x := nodePoint(xg.Data(), n, dim)
					if err := m.sampleGrid(uIdx, spec.Kernel, x, uq); err != nil {
						return fmt.Errorf("part %d node %d: %w", p, n, err)
					}
					for d := 0; d < dim; d++ {
						u.Set(n*dim+d, uq[d])
					}
				}
				return nil
			}

			rule := fe.GaussRule(mesh.Type, spec.QuadOrder)
			rhs := make([]float64, u.Len())
			uq := make([]float64, dim)
			for _, conn := range mesh.Elems {
				for qp := 0; qp < rule.Len(); qp++ {
					g := fe.EvalGeom(mesh, conn, m.refC[p], rule.Points[qp], rule.Weights[qp])
					if g.Degenerate {
						continue
					}
					phi := fe.Shape(mesh.Type, rule.Points[qp])
					x := mapPoint(xg.Data(), conn, phi, dim)
					if err := m.sampleGrid(uIdx, spec.Kernel, x, uq); err != nil {
						return fmt.Errorf("part %d: %w", p, err)
					}
					for a, na := range conn {
						for d := 0; d < dim; d++ {
							rhs[na*dim+d] += phi[a] * uq[d] * g.JxW
						}
					}
				}
			}
			m.massProj[p].Project(rhs, dim)
			copy(u.Data(), rhs)
			return nil
		}()
		if err != nil {
			return fmt.Errorf("%s: interpolating velocity at t=%v: %w", m.name, t, err)
		}
	}
	if m.phase == phasePre {
		m.phase = phaseVelocityInterpolated
	}
	return nil
}

// SpreadForce scatters the Lagrangian force density at time t onto the grid
// force field, accumulating (never overwriting) cell values. With splitting
// enabled and jump conditions off, the normal/tangential transmission forces
// are spread alongside the interior density; with jump conditions on they
// are instead imposed sharply on intersected cells. The supplied schedules
// fold ghost-cell accumulations back into patch interiors and run last.
func (m *Method) SpreadForce(fIdx int, scheds []grid.Schedule, t float64) error {
	m.requirePhase("SpreadForce", phaseForceComputed)
	snap := m.snapshotAt(t)
	m.maskSkipped = 0

	for p := 0; p < m.NumParts(); p++ {
		err := func() error {
			defer m.store.DropGhosts(p)
			xg := m.store.Ghost(p, fields.Coords, snap)

			if err := m.spreadField(p, fIdx, xg, m.store.Ghost(p, fields.Force, snap)); err != nil {
				return err
			}
			if m.opts.SplitForce() && !m.opts.UseJumpConditions {
				split := []fields.Kind{fields.ForceN, fields.ForceT}
				if m.Dim() == 3 {
					split = append(split, fields.ForceB)
				}
				for _, k := range split {
					if err := m.spreadField(p, fIdx, xg, m.store.Ghost(p, k, snap)); err != nil {
						return err
					}
				}
			}
			if m.opts.UseJumpConditions {
				if err := m.imposeJumpConditions(p, fIdx, snap, xg); err != nil {
					return err
				}
			}
			return nil
		}()
		if err != nil {
			return fmt.Errorf("%s: spreading force at t=%v: %w", m.name, t, err)
		}
	}
	for _, s := range scheds {
		if err := s.Fill(); err != nil {
			return fmt.Errorf("%s: force ghost accumulation: %w", m.name, err)
		}
	}
	if m.maskSkipped > 0 {
		m.log.Debug("spread suppressed by mask",
			zap.Int("cells", m.maskSkipped), zap.Float64("t", t))
	}
	m.phase = phaseForceSpread
	return nil
}

// spreadField deposits one nodal force-density field of a part.
func (m *Method) spreadField(p, fIdx int, xg, fg *fields.Vector) error {
	dim := m.Dim()
	mesh := m.meshes[p]
	spec := m.spreadSpec[p]

	if spec.QuadType == delta.NodalQuadrature {
		fq := make([]float64, dim)
		for n := 0; n < mesh.NumNodes(); n++ {
			x := nodePoint(xg.Data(), n, dim)
			for d := 0; d < dim; d++ {
				fq[d] = fg.At(n*dim + d)
			}
			if err := m.depositGrid(fIdx, spec.Kernel, x, fq, m.nodalW[p][n]); err != nil {
				return fmt.Errorf("part %d node %d: %w", p, n, err)
			}
		}
		return nil
	}

	rule := fe.GaussRule(mesh.Type, spec.QuadOrder)
	fq := make([]float64, dim)
	for _, conn := range mesh.Elems {
		for qp := 0; qp < rule.Len(); qp++ {
			g := fe.EvalGeom(mesh, conn, m.refC[p], rule.Points[qp], rule.Weights[qp])
			if g.Degenerate {
				continue
			}
			phi := fe.Shape(mesh.Type, rule.Points[qp])
			x := mapPoint(xg.Data(), conn, phi, dim)
			for d := 0; d < dim; d++ {
				fq[d] = 0
				for a, na := range conn {
					fq[d] += phi[a] * fg.At(na*dim+d)
				}
			}
			if err := m.depositGrid(fIdx, spec.Kernel, x, fq, g.JxW); err != nil {
				return fmt.Errorf("part %d: %w", p, err)
			}
		}
	}
	return nil
}

// locate returns the patch owning x together with the cell-relative
// coordinates of x in that patch's index space.
func (m *Method) locate(x [3]float64) (grid.Patch, [3]float64, error) {
	ln, pn, ok := m.hierarchy.FindPatch(x)
	if !ok {
		return nil, [3]float64{}, fmt.Errorf("structure point %v left the fluid domain (time step too large for local CFL limit)", x)
	}
	patch := m.hierarchy.Level(ln).Patch(pn)
	var c [3]float64
	xlo := patch.XLower()
	dx := patch.DX()
	box := patch.Box()
	for d := 0; d < m.Dim(); d++ {
		c[d] = float64(box.Lo[d]) + (x[d]-xlo[d])/dx[d]
	}
	return patch, c, nil
}

// sampleGrid evaluates the kernel-weighted average of grid field uIdx at x.
func (m *Method) sampleGrid(uIdx int, kern delta.Family, x [3]float64, out []float64) error {
	patch, c, err := m.locate(x)
	if err != nil {
		return err
	}
	f := patch.Field(uIdx)
	dim := m.Dim()
	for d := range out {
		out[d] = 0
	}
	m.eachStencilCell(kern, c, dim, func(i grid.Index, w float64) {
		for d := 0; d < dim; d++ {
			out[d] += w * f.At(i, d)
		}
	})
	return nil
}

// depositGrid accumulates val*scale, kernel-weighted and normalized by the
// cell volume, around x. Cells marked by the registered Eulerian mask are
// skipped.
func (m *Method) depositGrid(fIdx int, kern delta.Family, x [3]float64, val []float64, scale float64) error {
	patch, c, err := m.locate(x)
	if err != nil {
		return err
	}
	f := patch.Field(fIdx)
	var mask *grid.CellField
	if m.maskIdx >= 0 {
		mask = patch.Field(m.maskIdx)
	}
	dim := m.Dim()
	dx := patch.DX()
	vol := 1.0
	for d := 0; d < dim; d++ {
		vol *= dx[d]
	}
	m.eachStencilCell(kern, c, dim, func(i grid.Index, w float64) {
		if mask != nil && mask.At(i, 0) != 0 {
			m.maskSkipped++
			return
		}
		for d := 0; d < dim; d++ {
			f.Add(i, d, val[d]*w*scale/vol)
		}
	})
	return nil
}

// eachStencilCell visits the tensor-product kernel stencil around the
// cell-relative point c with the product weight.
func (m *Method) eachStencilCell(kern delta.Family, c [3]float64, dim int, visit func(i grid.Index, w float64)) {
	var lo, hi [3]int
	var wts [3][]float64
	for d := 0; d < dim; d++ {
		lo[d], hi[d] = kern.Stencil(c[d])
		wts[d] = make([]float64, hi[d]-lo[d]+1)
		for i := lo[d]; i <= hi[d]; i++ {
			wts[d][i-lo[d]] = kern.Weight(c[d] - (float64(i) + 0.5))
		}
	}
	var idx grid.Index
	if dim == 2 {
		for i := lo[0]; i <= hi[0]; i++ {
			for j := lo[1]; j <= hi[1]; j++ {
				w := wts[0][i-lo[0]] * wts[1][j-lo[1]]
				if w == 0 {
					continue
				}
				idx[0], idx[1] = i, j
				visit(idx, w)
			}
		}
		return
	}
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				w := wts[0][i-lo[0]] * wts[1][j-lo[1]] * wts[2][k-lo[2]]
				if w == 0 {
					continue
				}
				idx[0], idx[1], idx[2] = i, j, k
				visit(idx, w)
			}
		}
	}
}

func nodePoint(coords []float64, n, dim int) [3]float64 {
	var x [3]float64
	for d := 0; d < dim; d++ {
		x[d] = coords[n*dim+d]
	}
	return x
}

func mapPoint(coords []float64, conn []int, phi []float64, dim int) [3]float64 {
	var x [3]float64
	for a, na := range conn {
		for d := 0; d < dim; d++ {
			x[d] += phi[a] * coords[na*dim+d]
		}
	}
	return x
}
