// Package grid defines the Eulerian side of the coupling as consumed
// interfaces: a patch hierarchy addressed by (level, patch, data index),
// cell-centered patch fields, and the ghost-fill schedules the caller
// supplies before each transfer phase. Refinement, regridding, and load
// balancing are owned elsewhere; this package only fixes the access
// contract, plus a uniform single-level implementation used by tests and
// examples.
package grid

import "fmt"

// Index addresses a cell in a patch's index space. The third component is
// ignored in two dimensions.
type Index [3]int

// Box is an inclusive index-space range.
type Box struct {
	Lo, Hi Index
}

// Contains reports whether i lies inside the box in the first dim directions.
func (b Box) Contains(i Index, dim int) bool {
	for d := 0; d < dim; d++ {
		if i[d] < b.Lo[d] || i[d] > b.Hi[d] {
			return false
		}
	}
	return true
}

// Size returns the cell count per direction.
func (b Box) Size(dim int) Index {
	var n Index
	for d := 0; d < 3; d++ {
		if d < dim {
			n[d] = b.Hi[d] - b.Lo[d] + 1
		} else {
			n[d] = 1
		}
	}
	return n
}

// Patch exposes one rectangular region of a hierarchy level.
type Patch interface {
	Box() Box
	// XLower is the physical coordinate of the lower corner of Box().Lo.
	XLower() [3]float64
	DX() [3]float64
	// Field returns the patch data registered under the given data index.
	Field(idx int) *CellField
}

// Level is an ordered collection of patches with a common grid spacing.
type Level interface {
	NumPatches() int
	Patch(p int) Patch
}

// Hierarchy is the consumed AMR hierarchy: levels coarsest-to-finest, and a
// point-location query used by the transfer operators. FindPatch must return
// the finest level whose patches cover x.
type Hierarchy interface {
	Dim() int
	FinestLevel() int
	Level(ln int) Level
	FindPatch(x [3]float64) (ln, p int, ok bool)
}

// Schedule is a caller-supplied collective data exchange: filling ghost cells
// before interpolation, or folding ghost accumulations back into patch
// interiors after spreading. Fill blocks until all participants complete.
type Schedule interface {
	Fill() error
}

// CellField is cell-centered patch data of the given depth with a ghost
// margin. Entries are addressed by the owning patch's index space; ghost
// cells extend the box by Ghosts cells per side.
type CellField struct {
	box    Box
	dim    int
	depth  int
	ghosts int
	stride [3]int
	data   []float64
}

func NewCellField(box Box, dim, depth, ghosts int) *CellField {
	f := &CellField{box: box, dim: dim, depth: depth, ghosts: ghosts}
	n := 1
	for d := 0; d < dim; d++ {
		w := box.Hi[d] - box.Lo[d] + 1 + 2*ghosts
		f.stride[d] = n
		n *= w
	}
	f.data = make([]float64, n*depth)
	return f
}

func (f *CellField) Box() Box    { return f.box }
func (f *CellField) Depth() int  { return f.depth }
func (f *CellField) Ghosts() int { return f.ghosts }

func (f *CellField) offset(i Index, comp int) int {
	if comp < 0 || comp >= f.depth {
		panic(fmt.Sprintf("grid: component %d out of range [0,%d)", comp, f.depth))
	}
	off := 0
	for d := 0; d < f.dim; d++ {
		j := i[d] - f.box.Lo[d] + f.ghosts
		w := f.box.Hi[d] - f.box.Lo[d] + 1 + 2*f.ghosts
		if j < 0 || j >= w {
			panic(fmt.Sprintf("grid: index %v outside ghost box of patch %v", i, f.box))
		}
		off += j * f.stride[d]
	}
	return off*f.depth + comp
}

func (f *CellField) At(i Index, comp int) float64     { return f.data[f.offset(i, comp)] }
func (f *CellField) Set(i Index, comp int, x float64) { f.data[f.offset(i, comp)] = x }
func (f *CellField) Add(i Index, comp int, x float64) { f.data[f.offset(i, comp)] += x }

func (f *CellField) Zero() {
	for i := range f.data {
		f.data[i] = 0
	}
}

// Data exposes the backing slice, interior and ghosts, component-interleaved.
func (f *CellField) Data() []float64 { return f.data }
