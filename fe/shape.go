package fe

import "fmt"

// Shape evaluates the Lagrange shape functions at reference coordinate q.
// Edge2 uses q[0] in [-1,1]; Tri3 uses barycentric-style (r,s) in the unit
// triangle r,s >= 0, r+s <= 1.
func Shape(t ElemType, q []float64) []float64 {
	switch t {
	case Edge2:
		s := q[0]
		return []float64{(1 - s) / 2, (1 + s) / 2}
	case Tri3:
		r, s := q[0], q[1]
		return []float64{1 - r - s, r, s}
	}
	panic(fmt.Sprintf("fe: invalid element type %d", uint8(t)))
}

// ShapeGrad evaluates the reference-space gradients dphi_i/dxi_j at q.
// The result is indexed [node][refDir].
func ShapeGrad(t ElemType, q []float64) [][]float64 {
	switch t {
	case Edge2:
		return [][]float64{{-0.5}, {0.5}}
	case Tri3:
		return [][]float64{{-1, -1}, {1, 0}, {0, 1}}
	}
	panic(fmt.Sprintf("fe: invalid element type %d", uint8(t)))
}

// QuadRule is a quadrature rule on the reference element.
type QuadRule struct {
	Points  [][]float64
	Weights []float64
}

func (r QuadRule) Len() int { return len(r.Weights) }

// GaussRule returns a Gauss rule with the requested number of points per
// reference direction (1..3 for Edge2; 1 or 3 points total for Tri3).
func GaussRule(t ElemType, order int) QuadRule {
	switch t {
	case Edge2:
		switch order {
		case 1:
			return QuadRule{Points: [][]float64{{0}}, Weights: []float64{2}}
		case 2:
			a := 1.0 / sqrt3
			return QuadRule{
				Points:  [][]float64{{-a}, {a}},
				Weights: []float64{1, 1},
			}
		case 3:
			b := sqrt35
			return QuadRule{
				Points:  [][]float64{{-b}, {0}, {b}},
				Weights: []float64{5.0 / 9.0, 8.0 / 9.0, 5.0 / 9.0},
			}
		}
		panic(fmt.Sprintf("fe: unsupported Edge2 Gauss order %d", order))
	case Tri3:
		switch order {
		case 1:
			return QuadRule{
				Points:  [][]float64{{1.0 / 3.0, 1.0 / 3.0}},
				Weights: []float64{0.5},
			}
		case 2, 3:
			// Degree-2 exact 3-point rule at edge midpoints.
			return QuadRule{
				Points:  [][]float64{{0.5, 0}, {0.5, 0.5}, {0, 0.5}},
				Weights: []float64{1.0 / 6.0, 1.0 / 6.0, 1.0 / 6.0},
			}
		}
		panic(fmt.Sprintf("fe: unsupported Tri3 Gauss order %d", order))
	}
	panic(fmt.Sprintf("fe: invalid element type %d", uint8(t)))
}

// NodalRule places quadrature points at the element nodes with lumped
// weights summing to the reference measure.
func NodalRule(t ElemType) QuadRule {
	switch t {
	case Edge2:
		return QuadRule{
			Points:  [][]float64{{-1}, {1}},
			Weights: []float64{1, 1},
		}
	case Tri3:
		return QuadRule{
			Points:  [][]float64{{0, 0}, {1, 0}, {0, 1}},
			Weights: []float64{1.0 / 6.0, 1.0 / 6.0, 1.0 / 6.0},
		}
	}
	panic(fmt.Sprintf("fe: invalid element type %d", uint8(t)))
}

const (
	sqrt3  = 1.7320508075688772
	sqrt35 = 0.7745966692414834 // sqrt(3/5)
)
