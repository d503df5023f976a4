// Package fe is the consumed finite-element toolkit surface: meshes of
// low-order Lagrange elements, shape functions and quadrature rules on the
// reference element, named equation systems over the mesh degrees of
// freedom, and the mass-operator projection from quadrature points back to
// nodes. The coupling engine depends only on this surface; a richer FE
// library can be slotted in behind it.
package fe

import "fmt"

// Point is a physical or reference coordinate. Unused trailing components
// are zero.
type Point [3]float64

// ElemType identifies the reference element of a mesh.
type ElemType uint8

const (
	// Edge2 is the 2-node line element (a curve in 2D, codimension one).
	Edge2 ElemType = iota
	// Tri3 is the 3-node linear triangle (a solid in 2D or a surface in 3D).
	Tri3
)

func (t ElemType) String() string {
	switch t {
	case Edge2:
		return "EDGE2"
	case Tri3:
		return "TRI3"
	}
	return fmt.Sprintf("ElemType(%d)", uint8(t))
}

// NumNodes returns the node count of the reference element.
func (t ElemType) NumNodes() int {
	switch t {
	case Edge2:
		return 2
	case Tri3:
		return 3
	}
	panic(fmt.Sprintf("fe: invalid element type %d", uint8(t)))
}

// RefDim returns the dimension of the reference element.
func (t ElemType) RefDim() int {
	switch t {
	case Edge2:
		return 1
	case Tri3:
		return 2
	}
	panic(fmt.Sprintf("fe: invalid element type %d", uint8(t)))
}

// Mesh is a fixed-topology Lagrangian mesh embedded in Dim-dimensional
// space. Nodes hold the reference (material) coordinates; deformation lives
// in the equation systems, never in the mesh.
type Mesh struct {
	Dim   int
	Type  ElemType
	Nodes []Point
	Elems [][]int
}

func NewMesh(dim int, t ElemType, nodes []Point, elems [][]int) *Mesh {
	if dim != 2 && dim != 3 {
		panic(fmt.Sprintf("fe: unsupported spatial dimension %d", dim))
	}
	if t.RefDim() > dim {
		panic(fmt.Sprintf("fe: %s element does not embed in %dD", t, dim))
	}
	for e, conn := range elems {
		if len(conn) != t.NumNodes() {
			panic(fmt.Sprintf("fe: element %d has %d nodes, %s needs %d", e, len(conn), t, t.NumNodes()))
		}
		for _, n := range conn {
			if n < 0 || n >= len(nodes) {
				panic(fmt.Sprintf("fe: element %d references missing node %d", e, n))
			}
		}
	}
	return &Mesh{Dim: dim, Type: t, Nodes: nodes, Elems: elems}
}

func (m *Mesh) NumNodes() int { return len(m.Nodes) }
func (m *Mesh) NumElems() int { return len(m.Elems) }

// Codim returns the codimension of the structure in its embedding space.
// Codimension one marks a thin immersed interface with a well-defined
// normal; codimension zero marks a solid body.
func (m *Mesh) Codim() int { return m.Dim - m.Type.RefDim() }
