package fe

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ElemGeom is the geometry of one element at one quadrature point, evaluated
// on a nodal coordinate field (layout: component d of node n at n*dim+d).
type ElemGeom struct {
	X       Point      // mapped point
	J       *mat.Dense // tangent map dX/dxi, dim x refDim
	Ginv    *mat.Dense // inverse Gram matrix (J^T J)^-1, refDim x refDim
	DetG    float64    // Gram determinant
	JxW     float64    // quadrature weight times sqrt(DetG)
	GradPhi [][]float64 // physical (surface) shape gradients, [node][dim]
	Normal  Point      // unit normal for codimension-one elements
	// Degenerate marks a zero-measure element; all other entries are zero
	// and the element must contribute nothing to assembly.
	Degenerate bool
}

// DegenerateTol is the Gram-determinant threshold below which an element is
// treated as zero-measure.
const DegenerateTol = 1e-28

// EvalGeom evaluates the element map at reference point q with quadrature
// weight w. conn is the element connectivity; coords the nodal coordinates.
func EvalGeom(m *Mesh, conn []int, coords []float64, q []float64, w float64) ElemGeom {
	rd := m.Type.RefDim()
	phi := Shape(m.Type, q)
	dphi := ShapeGrad(m.Type, q)

	var g ElemGeom
	g.J = mat.NewDense(m.Dim, rd, nil)
	for a, n := range conn {
		for d := 0; d < m.Dim; d++ {
			x := coords[n*m.Dim+d]
			g.X[d] += phi[a] * x
			for j := 0; j < rd; j++ {
				g.J.Set(d, j, g.J.At(d, j)+dphi[a][j]*x)
			}
		}
	}

	// Gram matrix and its determinant give the surface measure.
	gram := mat.NewDense(rd, rd, nil)
	gram.Mul(g.J.T(), g.J)
	switch rd {
	case 1:
		g.DetG = gram.At(0, 0)
	case 2:
		g.DetG = gram.At(0, 0)*gram.At(1, 1) - gram.At(0, 1)*gram.At(1, 0)
	}
	if g.DetG < DegenerateTol {
		return ElemGeom{Degenerate: true}
	}
	g.JxW = w * math.Sqrt(g.DetG)

	g.Ginv = mat.NewDense(rd, rd, nil)
	switch rd {
	case 1:
		g.Ginv.Set(0, 0, 1/gram.At(0, 0))
	case 2:
		inv := 1 / g.DetG
		g.Ginv.Set(0, 0, gram.At(1, 1)*inv)
		g.Ginv.Set(1, 1, gram.At(0, 0)*inv)
		g.Ginv.Set(0, 1, -gram.At(0, 1)*inv)
		g.Ginv.Set(1, 0, -gram.At(1, 0)*inv)
	}

	// Physical shape gradients: grad phi_a = J Ginv dphi_a, the surface
	// gradient for codimension-one elements.
	g.GradPhi = make([][]float64, len(conn))
	tmp := make([]float64, rd)
	for a := range conn {
		g.GradPhi[a] = make([]float64, m.Dim)
		for i := 0; i < rd; i++ {
			tmp[i] = 0
			for j := 0; j < rd; j++ {
				tmp[i] += g.Ginv.At(i, j) * dphi[a][j]
			}
		}
		for d := 0; d < m.Dim; d++ {
			for i := 0; i < rd; i++ {
				g.GradPhi[a][d] += g.J.At(d, i) * tmp[i]
			}
		}
	}

	if m.Codim() == 1 {
		g.Normal = unitNormal(m.Dim, g.J)
	}
	return g
}

// DeformationGradient returns F = dx/dX = Jx (JX)^+ as a dim x dim matrix,
// using the pseudo-inverse of the reference tangent map. For solid elements
// this is the usual deformation gradient; for thin interfaces it is the
// surface deformation gradient (rank refDim).
func DeformationGradient(cur, ref ElemGeom, dim int) *mat.Dense {
	rd, _ := ref.Ginv.Dims()
	pinv := mat.NewDense(rd, dim, nil) // (JX)^+ = Ginv JX^T
	pinv.Mul(ref.Ginv, ref.J.T())
	F := mat.NewDense(dim, dim, nil)
	F.Mul(cur.J, pinv)
	return F
}

func unitNormal(dim int, J *mat.Dense) Point {
	var n Point
	switch dim {
	case 2:
		tx, ty := J.At(0, 0), J.At(1, 0)
		l := math.Hypot(tx, ty)
		n[0], n[1] = ty/l, -tx/l
	case 3:
		ax, ay, az := J.At(0, 0), J.At(1, 0), J.At(2, 0)
		bx, by, bz := J.At(0, 1), J.At(1, 1), J.At(2, 1)
		n[0] = ay*bz - az*by
		n[1] = az*bx - ax*bz
		n[2] = ax*by - ay*bx
		l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		n[0], n[1], n[2] = n[0]/l, n[1]/l, n[2]/l
	}
	return n
}
