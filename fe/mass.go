package fe

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MassProjector solves M a = b to project quadrature-point data assembled
// into a weak-form right-hand side back onto nodal degrees of freedom. The
// mass matrix is assembled once over the reference configuration and reused
// for every projection. Consistent mass is factored with a dense Cholesky;
// lumped mass takes row sums.
type MassProjector struct {
	mesh       *Mesh
	consistent bool
	chol       *mat.Cholesky
	lumped     []float64
}

// NewMassProjector assembles the scalar mass operator on the reference
// coordinates refCoords (layout: node n component d at n*dim+d).
func NewMassProjector(m *Mesh, refCoords []float64, rule QuadRule, consistent bool) *MassProjector {
	n := m.NumNodes()
	mp := &MassProjector{mesh: m, consistent: consistent}

	mass := mat.NewSymDense(n, nil)
	for _, conn := range m.Elems {
		for qp := 0; qp < rule.Len(); qp++ {
			g := EvalGeom(m, conn, refCoords, rule.Points[qp], rule.Weights[qp])
			if g.Degenerate {
				continue
			}
			phi := Shape(m.Type, rule.Points[qp])
			for a, na := range conn {
				for b, nb := range conn {
					if nb < na {
						continue
					}
					mass.SetSym(na, nb, mass.At(na, nb)+phi[a]*phi[b]*g.JxW)
				}
			}
		}
	}

	if consistent {
		mp.chol = &mat.Cholesky{}
		if ok := mp.chol.Factorize(mass); !ok {
			panic("fe: mass matrix is not positive definite; mesh has no measure")
		}
	} else {
		mp.lumped = make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				mp.lumped[i] += mass.At(i, j)
			}
			if mp.lumped[i] <= 0 {
				panic(fmt.Sprintf("fe: node %d has non-positive lumped mass", i))
			}
		}
	}
	return mp
}

// Project solves the mass system in place for each of nvars interleaved
// components of rhs (dof layout node*nvars+comp).
func (mp *MassProjector) Project(rhs []float64, nvars int) {
	n := mp.mesh.NumNodes()
	if len(rhs) != n*nvars {
		panic(fmt.Sprintf("fe: projection rhs has %d entries, want %d", len(rhs), n*nvars))
	}
	if !mp.consistent {
		for node := 0; node < n; node++ {
			for c := 0; c < nvars; c++ {
				rhs[node*nvars+c] /= mp.lumped[node]
			}
		}
		return
	}
	b := mat.NewVecDense(n, nil)
	var x mat.VecDense
	for c := 0; c < nvars; c++ {
		for node := 0; node < n; node++ {
			b.SetVec(node, rhs[node*nvars+c])
		}
		if err := mp.chol.SolveVecTo(&x, b); err != nil {
			panic(fmt.Sprintf("fe: mass solve failed: %v", err))
		}
		for node := 0; node < n; node++ {
			rhs[node*nvars+c] = x.AtVec(node)
		}
	}
}
