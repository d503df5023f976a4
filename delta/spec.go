package delta

import "fmt"

// QuadratureType selects where a part's transfer quadrature points live.
type QuadratureType uint8

const (
	// GaussQuadrature places points at element Gauss points.
	GaussQuadrature QuadratureType = iota
	// NodalQuadrature places points at the mesh nodes with lumped weights.
	NodalQuadrature
)

func (q QuadratureType) String() string {
	switch q {
	case GaussQuadrature:
		return "GAUSS"
	case NodalQuadrature:
		return "NODAL"
	}
	return fmt.Sprintf("QuadratureType(%d)", uint8(q))
}

// InterpSpec fixes the kernel and quadrature used to gather Eulerian data
// onto a part. It is immutable for the part's lifetime once the patch
// hierarchy has been initialized.
type InterpSpec struct {
	Kernel    Family
	QuadType  QuadratureType
	QuadOrder int // Gauss points per reference direction; ignored for NODAL
}

// SpreadSpec fixes the kernel and quadrature used to scatter Lagrangian force
// density onto the grid. Conservative requires the spread kernel to be the
// exact discrete adjoint of the interpolation kernel, which makes the
// Lagrangian-Eulerian transfer conserve total force and energy.
type SpreadSpec struct {
	Kernel       Family
	QuadType     QuadratureType
	QuadOrder    int
	Conservative bool
}

// MinGhostWidth returns the number of ghost cells a transfer with kernel f
// requires around each patch: half the support rounded up, plus one cell of
// slack for points that sit between a patch boundary and the first center.
func MinGhostWidth(f Family) int {
	return (f.Width()+1)/2 + 1
}
