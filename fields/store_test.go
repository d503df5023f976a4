package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRegisterAndLookup(t *testing.T) {
	s := NewStore(2)
	s.Register(0, Coords, 6)
	s.Register(0, Velocity, 6)
	s.Register(1, Coords, 9)

	assert.True(t, s.Registered(0, Velocity))
	assert.False(t, s.Registered(1, Velocity))
	assert.Equal(t, 6, s.V(0, Coords, Current).Len())
	assert.Equal(t, 9, s.V(1, Coords, Half).Len())
	assert.Equal(t, []Kind{Coords, Velocity}, s.Kinds(0))
}

func TestStoreUnregisteredIsFatal(t *testing.T) {
	s := NewStore(1)
	s.Register(0, Coords, 3)
	assert.Panics(t, func() { s.V(0, Force, Current) })
	assert.Panics(t, func() { s.V(1, Coords, Current) })
	assert.Panics(t, func() { s.Register(0, Coords, 3) })
}

func TestGhostReflectsCommittedMutations(t *testing.T) {
	s := NewStore(1)
	s.Register(0, Coords, 3)
	x := s.V(0, Coords, Current)
	x.Set(1, 4.5)

	g := s.Ghost(0, Coords, Current)
	require.Equal(t, 4.5, g.At(1))

	// The ghost is a copy: later mutations do not leak into it.
	x.Set(1, -1)
	assert.Equal(t, 4.5, g.At(1))
	s.DropGhosts(0)
}

func TestVectorArithmetic(t *testing.T) {
	v := NewVector(3)
	w := NewVector(3)
	for i := 0; i < 3; i++ {
		v.Set(i, float64(i))
		w.Set(i, 2)
	}
	v.AXPY(0.5, w)
	assert.Equal(t, []float64{1, 2, 3}, v.Data())
	assert.Equal(t, 12.0, v.Dot(w))

	c := v.Clone()
	v.Zero()
	assert.Equal(t, []float64{1, 2, 3}, c.Data())

	assert.Panics(t, func() { v.AXPY(1, NewVector(2)) })
}
