// Package fields owns the per-part named field vectors of the structure:
// three temporal snapshots per field plus on-demand ghost-augmented copies
// used only during Lagrangian-Eulerian transfer.
package fields

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Vector is a serial stand-in for the distributed numeric vector backend.
// It exposes element access, arithmetic, and the ghost-synchronization hook
// that a parallel implementation would turn into a collective exchange.
type Vector struct {
	data []float64
}

func NewVector(n int) *Vector {
	return &Vector{data: make([]float64, n)}
}

func (v *Vector) Len() int             { return len(v.data) }
func (v *Vector) At(i int) float64     { return v.data[i] }
func (v *Vector) Set(i int, x float64) { v.data[i] = x }
func (v *Vector) Add(i int, x float64) { v.data[i] += x }

// Data exposes the backing slice. Callers must not resize it.
func (v *Vector) Data() []float64 { return v.data }

func (v *Vector) Zero() {
	for i := range v.data {
		v.data[i] = 0
	}
}

func (v *Vector) Scale(a float64) {
	floats.Scale(a, v.data)
}

// AXPY computes v += a*w.
func (v *Vector) AXPY(a float64, w *Vector) {
	if w.Len() != v.Len() {
		panic(fmt.Sprintf("fields: AXPY size mismatch %d != %d", w.Len(), v.Len()))
	}
	floats.AddScaled(v.data, a, w.data)
}

func (v *Vector) CopyFrom(w *Vector) {
	if w.Len() != v.Len() {
		panic(fmt.Sprintf("fields: copy size mismatch %d != %d", w.Len(), v.Len()))
	}
	copy(v.data, w.data)
}

func (v *Vector) Clone() *Vector {
	c := NewVector(v.Len())
	copy(c.data, v.data)
	return c
}

func (v *Vector) Dot(w *Vector) float64 {
	if w.Len() != v.Len() {
		panic(fmt.Sprintf("fields: dot size mismatch %d != %d", w.Len(), v.Len()))
	}
	return floats.Dot(v.data, w.data)
}

// GhostSync is the collective exchange point that refreshes off-process
// entries. The serial backend has nothing to exchange.
func (v *Vector) GhostSync() {}
