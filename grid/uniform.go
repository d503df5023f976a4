package grid

import "fmt"

// UniformHierarchy is a single-level, single-patch periodic hierarchy. It
// stands in for the external AMR hierarchy in tests, examples, and serial
// runs; the coupling engine only ever touches it through the Hierarchy,
// Patch, and Schedule contracts.
type UniformHierarchy struct {
	dim    int
	box    Box
	xlo    [3]float64
	dx     [3]float64
	ghosts int
	fields []*CellField
}

// NewUniform builds a dim-dimensional periodic box [xlo, xhi) with n cells
// per direction and the given ghost width.
func NewUniform(dim int, n Index, xlo, xhi [3]float64, ghosts int) *UniformHierarchy {
	if dim != 2 && dim != 3 {
		panic(fmt.Sprintf("grid: unsupported dimension %d", dim))
	}
	h := &UniformHierarchy{dim: dim, xlo: xlo, ghosts: ghosts}
	for d := 0; d < dim; d++ {
		if n[d] <= 0 {
			panic(fmt.Sprintf("grid: non-positive cell count %d in direction %d", n[d], d))
		}
		h.box.Hi[d] = n[d] - 1
		h.dx[d] = (xhi[d] - xlo[d]) / float64(n[d])
	}
	return h
}

// AddField registers cell data of the given depth and returns its data index.
func (h *UniformHierarchy) AddField(depth int) int {
	h.fields = append(h.fields, NewCellField(h.box, h.dim, depth, h.ghosts))
	return len(h.fields) - 1
}

func (h *UniformHierarchy) Dim() int          { return h.dim }
func (h *UniformHierarchy) FinestLevel() int  { return 0 }
func (h *UniformHierarchy) Level(ln int) Level {
	if ln != 0 {
		panic(fmt.Sprintf("grid: level %d out of range", ln))
	}
	return h
}

func (h *UniformHierarchy) NumPatches() int { return 1 }
func (h *UniformHierarchy) Patch(p int) Patch {
	if p != 0 {
		panic(fmt.Sprintf("grid: patch %d out of range", p))
	}
	return h
}

func (h *UniformHierarchy) Box() Box            { return h.box }
func (h *UniformHierarchy) XLower() [3]float64  { return h.xlo }
func (h *UniformHierarchy) DX() [3]float64      { return h.dx }
func (h *UniformHierarchy) Field(idx int) *CellField {
	if idx < 0 || idx >= len(h.fields) {
		panic(fmt.Sprintf("grid: data index %d not registered", idx))
	}
	return h.fields[idx]
}

// FindPatch locates the patch owning physical point x. The domain is
// periodic, so any finite point maps into the single patch; a NaN or
// infinite coordinate is reported as out of bounds.
func (h *UniformHierarchy) FindPatch(x [3]float64) (ln, p int, ok bool) {
	for d := 0; d < h.dim; d++ {
		if x[d] != x[d] || x[d] > 1e300 || x[d] < -1e300 {
			return 0, 0, false
		}
	}
	return 0, 0, true
}

// CellIndex maps a physical point into this patch's index space, wrapping
// periodically.
func (h *UniformHierarchy) CellIndex(x [3]float64) Index {
	var i Index
	for d := 0; d < h.dim; d++ {
		n := h.box.Hi[d] + 1
		c := int(floorDiv(x[d]-h.xlo[d], h.dx[d]))
		c %= n
		if c < 0 {
			c += n
		}
		i[d] = c
	}
	return i
}

func floorDiv(a, b float64) float64 {
	q := a / b
	f := float64(int(q))
	if q < 0 && q != f {
		f--
	}
	return f
}

// ghostFill copies periodic images of the interior into the ghost margin.
type ghostFill struct {
	h   *UniformHierarchy
	idx int
}

// ghostAccumulate folds ghost-cell accumulations back onto their periodic
// interior images and clears the ghosts: the adjoint of ghostFill, used
// after force spreading.
type ghostAccumulate struct {
	h   *UniformHierarchy
	idx int
}

// FillSchedule returns the schedule that fills ghost cells of field idx
// before an interpolation phase.
func (h *UniformHierarchy) FillSchedule(idx int) Schedule {
	return &ghostFill{h: h, idx: idx}
}

// AccumulateSchedule returns the schedule that folds ghost accumulations of
// field idx into the interior after a spreading phase.
func (h *UniformHierarchy) AccumulateSchedule(idx int) Schedule {
	return &ghostAccumulate{h: h, idx: idx}
}

// eachGhostImage visits every ghost cell of the patch together with its
// periodic interior image.
func (h *UniformHierarchy) eachGhostImage(visit func(ghost, image Index)) {
	var lo, hi Index
	for d := 0; d < h.dim; d++ {
		lo[d] = h.box.Lo[d] - h.ghosts
		hi[d] = h.box.Hi[d] + h.ghosts
	}
	var walk func(d int, i Index)
	walk = func(d int, i Index) {
		if d == h.dim {
			if h.box.Contains(i, h.dim) {
				return
			}
			img := i
			for dd := 0; dd < h.dim; dd++ {
				n := h.box.Hi[dd] + 1
				img[dd] = ((img[dd] % n) + n) % n
			}
			visit(i, img)
			return
		}
		for c := lo[d]; c <= hi[d]; c++ {
			i[d] = c
			walk(d+1, i)
		}
	}
	walk(0, Index{})
}

func (s *ghostFill) Fill() error {
	f := s.h.Field(s.idx)
	s.h.eachGhostImage(func(ghost, image Index) {
		for c := 0; c < f.Depth(); c++ {
			f.Set(ghost, c, f.At(image, c))
		}
	})
	return nil
}

func (s *ghostAccumulate) Fill() error {
	f := s.h.Field(s.idx)
	s.h.eachGhostImage(func(ghost, image Index) {
		for c := 0; c < f.Depth(); c++ {
			f.Add(image, c, f.At(ghost, c))
			f.Set(ghost, c, 0)
		}
	})
	return nil
}
