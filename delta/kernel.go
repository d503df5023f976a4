// Package delta provides the regularized delta-function kernels used to
// transfer data between the Lagrangian structure and the Eulerian grid,
// together with the per-part interpolation and spreading specifications.
package delta

import (
	"fmt"
	"math"
)

// Family identifies a one-dimensional regularized delta kernel phi(r).
// The d-dimensional kernel is the tensor product of phi over the coordinate
// directions, scaled by the grid spacing.
type Family uint8

const (
	// PiecewiseLinear is the 2-point hat function.
	PiecewiseLinear Family = iota
	// IB3 is the 3-point kernel of Roma, Peskin and Berger.
	IB3
	// IB4 is Peskin's classical 4-point cosine-like kernel.
	IB4
	// BSpline3 is the cubic B-spline (4-point support).
	BSpline3
)

func (f Family) String() string {
	switch f {
	case PiecewiseLinear:
		return "PIECEWISE_LINEAR"
	case IB3:
		return "IB_3"
	case IB4:
		return "IB_4"
	case BSpline3:
		return "BSPLINE_3"
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// ParseFamily maps a configuration string to a kernel family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "PIECEWISE_LINEAR":
		return PiecewiseLinear, nil
	case "IB_3":
		return IB3, nil
	case "IB_4":
		return IB4, nil
	case "BSPLINE_3":
		return BSpline3, nil
	}
	return 0, fmt.Errorf("unknown delta kernel %q", s)
}

// Width returns the support width of the kernel in grid cells. A point
// interacts with Width cells per coordinate direction.
func (f Family) Width() int {
	switch f {
	case PiecewiseLinear:
		return 2
	case IB3:
		return 3
	case IB4:
		return 4
	case BSpline3:
		return 4
	}
	panic(fmt.Sprintf("delta: invalid kernel family %d", uint8(f)))
}

// Weight evaluates the 1D kernel phi at r, the signed distance from the point
// to a grid location in units of the grid spacing. All families satisfy the
// discrete moment conditions
//
//	sum_j phi(r-j) = 1   and   sum_j (r-j) phi(r-j) = 0
//
// for every real r, which gives exact reproduction of constant and linear
// grid fields under interpolation.
func (f Family) Weight(r float64) float64 {
	r = math.Abs(r)
	switch f {
	case PiecewiseLinear:
		if r < 1 {
			return 1 - r
		}
		return 0
	case IB3:
		switch {
		case r < 0.5:
			return (1 + math.Sqrt(1-3*r*r)) / 3
		case r < 1.5:
			q := 1 - r
			return (5 - 3*r - math.Sqrt(1-3*q*q)) / 6
		}
		return 0
	case IB4:
		switch {
		case r < 1:
			return (3 - 2*r + math.Sqrt(1+4*r-4*r*r)) / 8
		case r < 2:
			return (5 - 2*r - math.Sqrt(-7+12*r-4*r*r)) / 8
		}
		return 0
	case BSpline3:
		switch {
		case r < 1:
			return 2.0/3.0 - r*r + r*r*r/2
		case r < 2:
			q := 2 - r
			return q * q * q / 6
		}
		return 0
	}
	panic(fmt.Sprintf("delta: invalid kernel family %d", uint8(f)))
}

// Stencil returns the range of grid indices [lo, hi] (inclusive) that a point
// with cell-relative coordinate x/h = c interacts with in one direction, for
// a field located at cell centers (index i sits at i+0.5).
func (f Family) Stencil(c float64) (lo, hi int) {
	half := float64(f.Width()) / 2
	lo = int(math.Ceil(c - 0.5 - half))
	hi = int(math.Floor(c - 0.5 + half))
	return lo, hi
}
