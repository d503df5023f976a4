package delta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var families = []Family{PiecewiseLinear, IB3, IB4, BSpline3}

// Zeroth and first discrete moment conditions: sum_j phi(r-j) = 1 and
// sum_j j*phi(r-j) = r for arbitrary point offsets r.
func TestMomentConditions(t *testing.T) {
	offsets := []float64{0, 0.1, 0.25, 0.5, 0.7321, 0.9999}
	for _, f := range families {
		for _, r := range offsets {
			var m0, m1 float64
			for j := -8; j <= 8; j++ {
				w := f.Weight(r - float64(j))
				m0 += w
				m1 += float64(j) * w
			}
			assert.InDeltaf(t, 1.0, m0, 1e-12, "%s zeroth moment at r=%v", f, r)
			assert.InDeltaf(t, r, m1, 1e-12, "%s first moment at r=%v", f, r)
		}
	}
}

func TestSupportWidth(t *testing.T) {
	for _, f := range families {
		half := float64(f.Width()) / 2
		assert.Equal(t, 0.0, f.Weight(half+1e-12), "%s must vanish outside support", f)
		assert.Greater(t, f.Weight(half-1e-6), 0.0, "%s must be positive inside support", f)
	}
}

func TestSymmetry(t *testing.T) {
	for _, f := range families {
		for r := 0.0; r < 3.0; r += 0.17 {
			assert.Equal(t, f.Weight(r), f.Weight(-r))
		}
	}
}

func TestStencilCoversSupport(t *testing.T) {
	for _, f := range families {
		for _, c := range []float64{0.2, 3.5, 7.93} {
			lo, hi := f.Stencil(c)
			// Every cell center in [lo, hi] is within the support.
			half := float64(f.Width()) / 2
			for i := lo; i <= hi; i++ {
				x := float64(i) + 0.5
				require.LessOrEqual(t, math.Abs(c-x), half+1e-12)
			}
			// The centers just outside are not.
			assert.Greater(t, math.Abs(c-(float64(lo-1)+0.5)), half-1e-12)
			assert.Greater(t, math.Abs(c-(float64(hi+1)+0.5)), half-1e-12)
		}
	}
}

func TestParseFamily(t *testing.T) {
	for _, f := range families {
		got, err := ParseFamily(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFamily("IB_42")
	assert.Error(t, err)
}

func TestMinGhostWidth(t *testing.T) {
	assert.Equal(t, 2, MinGhostWidth(PiecewiseLinear))
	assert.Equal(t, 3, MinGhostWidth(IB4))
}
