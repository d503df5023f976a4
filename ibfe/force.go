package ibfe

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
)

// ComputeLagrangianForce evaluates the elastic force density of every part
// at the time level t, in weak form: the assembled right-hand side of
// -int P : grad(phi) dX (plus any registered body force) is projected onto
// nodes through the mass operator.
//
// In split mode the transmission traction T = P N across the physical
// boundary is factored out of the interior density into separate normal,
// tangential (and, in 3D, binormal) force fields, and the jump quantities it
// determines, the pressure jump T·n and the viscosity-scaled velocity
// gradient jumps, are computed for the jump-condition machinery. The
// interior density is assembled as total minus transmission, so disabling
// splitting reproduces the identical total force up to summation order.
func (m *Method) ComputeLagrangianForce(t float64) {
	m.requirePhase("ComputeLagrangianForce", phasePositionAdvanced)
	snap := m.snapshotAt(t)
	dim := m.Dim()
	split := m.opts.SplitForce()

	for p := 0; p < m.NumParts(); p++ {
		mesh := m.meshes[p]
		x := m.store.V(p, fields.Coords, snap)
		rule := m.forceRule(mesh.Type)

		nd := mesh.NumNodes() * dim
		rhsF := make([]float64, nd)
		var rhsN, rhsT, rhsB, rhsPj []float64
		var rhsDu, rhsDv, rhsDw []float64
		if split {
			rhsN = make([]float64, nd)
			rhsT = make([]float64, nd)
			rhsPj = make([]float64, mesh.NumNodes())
			rhsDu = make([]float64, nd)
			rhsDv = make([]float64, nd)
			if dim == 3 {
				rhsB = make([]float64, nd)
				rhsDw = make([]float64, nd)
			}
		}

		// The velocity-gradient jumps are scaled by 1/mu; they are only
		// consumed by the jump-condition machinery, which validates mu > 0.
		invMu := 0.0
		if m.opts.UseJumpConditions {
			invMu = 1 / m.opts.Mu
		}

		T := make([]float64, 3)
		for _, conn := range mesh.Elems {
			for qp := 0; qp < rule.Len(); qp++ {
				gRef := fe.EvalGeom(mesh, conn, m.refC[p], rule.Points[qp], rule.Weights[qp])
				if gRef.Degenerate {
					continue
				}
				gCur := fe.EvalGeom(mesh, conn, x.Data(), rule.Points[qp], rule.Weights[qp])
				if gCur.Degenerate {
					// A collapsed element contributes zero force density.
					continue
				}
				phi := fe.Shape(mesh.Type, rule.Points[qp])
				Xq := fe.Point(mapPoint(m.refC[p], conn, phi, dim))
				xq := fe.Point(mapPoint(x.Data(), conn, phi, dim))

				var P *mat.Dense
				if fn := m.pk1[p]; fn != nil {
					F := fe.DeformationGradient(gCur, gRef, dim)
					P = fn(F, Xq, t)
				}

				if P != nil {
					for a, na := range conn {
						for i := 0; i < dim; i++ {
							s := 0.0
							for j := 0; j < dim; j++ {
								s += P.At(i, j) * gRef.GradPhi[a][j]
							}
							rhsF[na*dim+i] -= s * gRef.JxW
						}
					}
				}
				if fn := m.bodyForce[p]; fn != nil {
					bf := fn(t, Xq, xq)
					for a, na := range conn {
						for i := 0; i < dim; i++ {
							rhsF[na*dim+i] += phi[a] * bf[i] * gRef.JxW
						}
					}
				}

				if !split || P == nil {
					continue
				}

				// Transmission traction T = P N against the reference normal,
				// decomposed in the current frame.
				for i := 0; i < dim; i++ {
					T[i] = 0
					for j := 0; j < dim; j++ {
						T[i] += P.At(i, j) * gRef.Normal[j]
					}
				}
				n := gCur.Normal
				Tn := 0.0
				for i := 0; i < dim; i++ {
					Tn += T[i] * n[i]
				}
				var Tt [3]float64
				for i := 0; i < dim; i++ {
					Tt[i] = T[i] - Tn*n[i]
				}
				var Tb [3]float64
				if dim == 3 {
					t1 := tangentUnit(gCur)
					Tt1 := Tt[0]*t1[0] + Tt[1]*t1[1] + Tt[2]*t1[2]
					for i := 0; i < 3; i++ {
						Tb[i] = Tt[i] - Tt1*t1[i]
						Tt[i] = Tt1 * t1[i]
					}
				}

				for a, na := range conn {
					w := phi[a] * gRef.JxW
					rhsPj[na] += phi[a] * Tn * gRef.JxW
					for i := 0; i < dim; i++ {
						rhsN[na*dim+i] += w * Tn * n[i]
						rhsT[na*dim+i] += w * Tt[i]
						// Velocity-gradient jumps: [grad u_c] = Tt_c n / mu.
						rhsDu[na*dim+i] += w * Tt[0] * n[i] * invMu
						rhsDv[na*dim+i] += w * Tt[1] * n[i] * invMu
						if dim == 3 {
							rhsB[na*dim+i] += w * Tb[i]
							rhsDw[na*dim+i] += w * Tt[2] * n[i] * invMu
						}
					}
				}
			}
		}

		if split {
			// Interior density excludes the transmission components; the sum
			// of the split assemblies reproduces the unsplit total exactly.
			for i := range rhsF {
				if m.opts.SplitNormalForce {
					rhsF[i] -= rhsN[i]
				}
				if m.opts.SplitTangentialForce {
					rhsF[i] -= rhsT[i]
					if dim == 3 {
						rhsF[i] -= rhsB[i]
					}
				}
			}
			if !m.opts.SplitNormalForce {
				zero(rhsN)
				zero(rhsPj)
			}
			if !m.opts.SplitTangentialForce {
				zero(rhsT)
				zero(rhsDu)
				zero(rhsDv)
				if dim == 3 {
					zero(rhsB)
					zero(rhsDw)
				}
			}
		}

		mp := m.massProj[p]
		mp.Project(rhsF, dim)
		copy(m.store.V(p, fields.Force, snap).Data(), rhsF)
		if split {
			mp.Project(rhsN, dim)
			mp.Project(rhsT, dim)
			mp.Project(rhsPj, 1)
			mp.Project(rhsDu, dim)
			mp.Project(rhsDv, dim)
			copy(m.store.V(p, fields.ForceN, snap).Data(), rhsN)
			copy(m.store.V(p, fields.ForceT, snap).Data(), rhsT)
			copy(m.store.V(p, fields.PressureJump, snap).Data(), rhsPj)
			copy(m.store.V(p, fields.DUJump, snap).Data(), rhsDu)
			copy(m.store.V(p, fields.DVJump, snap).Data(), rhsDv)
			if dim == 3 {
				mp.Project(rhsB, dim)
				mp.Project(rhsDw, dim)
				copy(m.store.V(p, fields.ForceB, snap).Data(), rhsB)
				copy(m.store.V(p, fields.DWJump, snap).Data(), rhsDw)
			}
			m.computeJumpDerivatives(p, snap)
		}
	}
	m.phase = phaseForceComputed
}

// computeJumpDerivatives fills the surface-derivative jump fields: dP_j, and
// in higher-order mode the second-derivative velocity jumps, as tangential
// derivatives of the projected first-order quantities.
func (m *Method) computeJumpDerivatives(p int, snap fields.Snapshot) {
	mesh := m.meshes[p]
	dim := m.Dim()
	rule := m.forceRule(mesh.Type)
	x := m.store.V(p, fields.Coords, snap)

	pj := m.store.V(p, fields.PressureJump, snap)
	rhsDPj := make([]float64, mesh.NumNodes())

	type pair struct {
		src fields.Kind
		dst fields.Kind
	}
	var pairs []pair
	if m.opts.UseHigherOrderJump {
		pairs = []pair{{fields.DUJump, fields.D2UJump}, {fields.DVJump, fields.D2VJump}}
		if dim == 3 {
			pairs = append(pairs, pair{fields.DWJump, fields.D2WJump})
		}
	}
	rhs2 := make([][]float64, len(pairs))
	for i := range rhs2 {
		rhs2[i] = make([]float64, mesh.NumNodes()*dim)
	}

	for _, conn := range mesh.Elems {
		for qp := 0; qp < rule.Len(); qp++ {
			gRef := fe.EvalGeom(mesh, conn, m.refC[p], rule.Points[qp], rule.Weights[qp])
			if gRef.Degenerate {
				continue
			}
			gCur := fe.EvalGeom(mesh, conn, x.Data(), rule.Points[qp], rule.Weights[qp])
			if gCur.Degenerate {
				continue
			}
			phi := fe.Shape(mesh.Type, rule.Points[qp])
			tau := tangentUnit(gCur)

			dpj := 0.0
			for a, na := range conn {
				dt := 0.0
				for d := 0; d < dim; d++ {
					dt += gRef.GradPhi[a][d] * tau[d]
				}
				dpj += pj.At(na) * dt
			}
			for a, na := range conn {
				rhsDPj[na] += phi[a] * dpj * gRef.JxW
			}

			for pi, pr := range pairs {
				src := m.store.V(p, pr.src, snap)
				for c := 0; c < dim; c++ {
					d2 := 0.0
					for a, na := range conn {
						dt := 0.0
						for d := 0; d < dim; d++ {
							dt += gRef.GradPhi[a][d] * tau[d]
						}
						d2 += src.At(na*dim+c) * dt
					}
					for a, na := range conn {
						rhs2[pi][na*dim+c] += phi[a] * d2 * gRef.JxW
					}
				}
			}
		}
	}

	mp := m.massProj[p]
	mp.Project(rhsDPj, 1)
	copy(m.store.V(p, fields.DPressureJump, snap).Data(), rhsDPj)
	for pi, pr := range pairs {
		mp.Project(rhs2[pi], dim)
		copy(m.store.V(p, pr.dst, snap).Data(), rhs2[pi])
	}
}

// tangentUnit is the unit tangent along the first reference direction.
func tangentUnit(g fe.ElemGeom) [3]float64 {
	var t [3]float64
	l := 0.0
	rows, _ := g.J.Dims()
	for d := 0; d < rows; d++ {
		t[d] = g.J.At(d, 0)
		l += t[d] * t[d]
	}
	l = math.Sqrt(l)
	for d := range t {
		t[d] /= l
	}
	return t
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
