package ibfe

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Changwei1996/ibfe/delta"
	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

// CoordinateMappingFn maps reference coordinates to initial physical
// coordinates. When none is registered the mapping is the identity.
type CoordinateMappingFn func(X fe.Point) fe.Point

// PK1StressFn is the caller-supplied constitutive law: it returns the first
// Piola-Kirchhoff stress for the deformation gradient F at material point X.
// The returned matrix is dim x dim.
type PK1StressFn func(F *mat.Dense, X fe.Point, t float64) *mat.Dense

// LagBodyForceFn returns an external Lagrangian body force density at
// material point X (current position x) and time t.
type LagBodyForceFn func(t float64, X, x fe.Point) [3]float64

// PreFluidSolveFn is invoked at the start of each step, before the caller
// runs the fluid solve.
type PreFluidSolveFn func(currentTime, newTime float64)

// Method couples one or more Lagrangian finite-element parts to an Eulerian
// patch hierarchy with the immersed-boundary method. All fields of a part
// are mutated only through the method's phase sequence; grid fields are
// accumulated through the spread contract.
type Method struct {
	name string
	opts Options
	log  *zap.Logger

	meshes []*fe.Mesh
	es     []*fe.EquationSystems
	store  *fields.Store

	interpSpec []delta.InterpSpec
	spreadSpec []delta.SpreadSpec

	massProj []*fe.MassProjector
	nodalW   [][]float64 // lumped reference nodal weights, for nodal transfer
	refC     [][]float64 // flattened reference coordinates per part

	hierarchy   grid.Hierarchy
	maskIdx     int
	maskSkipped int // cells suppressed by the mask in the current spread

	coordMap      []CoordinateMappingFn
	pk1           []PK1StressFn
	bodyForce     []LagBodyForceFn
	preFluidSolve []PreFluidSolveFn

	phase                          phase
	currentTime, newTime, halfTime float64

	esInitialized        bool
	dataInitialized      bool
	hierarchyInitialized bool
}

// NewMethod validates the configuration against the given parts. Options
// conflicts, including split or jump settings on meshes that cannot support
// them, are rejected here, before any stepping occurs.
func NewMethod(name string, opts Options, meshes []*fe.Mesh, log *zap.Logger) (*Method, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("%s: no parts", name)
	}
	dim := meshes[0].Dim
	for p, m := range meshes {
		if m.Dim != dim {
			return nil, fmt.Errorf("%s: part %d has dimension %d, part 0 has %d", name, p, m.Dim, dim)
		}
		if opts.SplitForce() && m.Codim() != 1 {
			return nil, fmt.Errorf("%s: part %d: force splitting requires a codimension-one structure", name, p)
		}
	}
	if opts.UseJumpConditions && opts.JumpMode == JumpPointwise && dim == 3 {
		return nil, fmt.Errorf("%s: pointwise jump imposition is only available in 2D; use %q", name, JumpWeak)
	}
	if log == nil {
		log = zap.NewNop()
	}

	n := len(meshes)
	m := &Method{
		name:       name,
		opts:       opts,
		log:        log,
		meshes:     meshes,
		interpSpec: make([]delta.InterpSpec, n),
		spreadSpec: make([]delta.SpreadSpec, n),
		coordMap:   make([]CoordinateMappingFn, n),
		pk1:        make([]PK1StressFn, n),
		bodyForce:  make([]LagBodyForceFn, n),
		maskIdx:    -1,
		phase:      phasePost,
	}
	for p := range m.interpSpec {
		m.interpSpec[p] = opts.interpSpec()
		m.spreadSpec[p] = opts.spreadSpec()
	}
	return m, nil
}

func (m *Method) NumParts() int { return len(m.meshes) }
func (m *Method) Dim() int      { return m.meshes[0].Dim }

// EquationSystems returns the systems collection of a part. Valid after
// InitializeEquationSystems.
func (m *Method) EquationSystems(part int) *fe.EquationSystems {
	m.requireES("EquationSystems")
	return m.es[part]
}

// Store exposes the field store for diagnostics and testing.
func (m *Method) Store() *fields.Store { return m.store }

// SetInterpSpec overrides the interpolation spec of one part. Specs are
// frozen once the patch hierarchy is initialized.
func (m *Method) SetInterpSpec(part int, s delta.InterpSpec) error {
	if m.hierarchyInitialized {
		return fmt.Errorf("%s: interp spec of part %d cannot change after hierarchy initialization", m.name, part)
	}
	m.interpSpec[part] = s
	return nil
}

// SetSpreadSpec overrides the spreading spec of one part.
func (m *Method) SetSpreadSpec(part int, s delta.SpreadSpec) error {
	if m.hierarchyInitialized {
		return fmt.Errorf("%s: spread spec of part %d cannot change after hierarchy initialization", m.name, part)
	}
	if s.Conservative {
		is := m.interpSpec[part]
		if s.Kernel != is.Kernel || s.QuadType != is.QuadType {
			return fmt.Errorf("%s: conservative spread spec of part %d must match interp spec", m.name, part)
		}
	}
	m.spreadSpec[part] = s
	return nil
}

// RegisterInitialCoordinateMapping installs the reference-to-physical
// mapping used by InitializeData.
func (m *Method) RegisterInitialCoordinateMapping(part int, fn CoordinateMappingFn) {
	m.requireNotInitialized("RegisterInitialCoordinateMapping")
	m.coordMap[part] = fn
}

// RegisterPK1StressFunction installs the constitutive law of a part.
func (m *Method) RegisterPK1StressFunction(part int, fn PK1StressFn) {
	m.pk1[part] = fn
}

// RegisterLagBodyForceFunction installs an external body force density.
func (m *Method) RegisterLagBodyForceFunction(part int, fn LagBodyForceFn) {
	m.bodyForce[part] = fn
}

// RegisterPreFluidSolveCallback appends a callback run at preprocess time.
func (m *Method) RegisterPreFluidSolveCallback(fn PreFluidSolveFn) {
	m.preFluidSolve = append(m.preFluidSolve, fn)
}

// RegisterEulerianMask marks a cell field whose nonzero entries suppress
// spreading, used to avoid double-counting across coincident shell surfaces.
func (m *Method) RegisterEulerianMask(maskIdx int) {
	m.maskIdx = maskIdx
}

// MinimumGhostCellWidth is the ghost width the caller must provide on every
// grid field touched by interpolation or spreading.
func (m *Method) MinimumGhostCellWidth() int {
	w := 0
	for p := range m.interpSpec {
		if g := delta.MinGhostWidth(m.interpSpec[p].Kernel); g > w {
			w = g
		}
		if g := delta.MinGhostWidth(m.spreadSpec[p].Kernel); g > w {
			w = g
		}
	}
	return w
}

func (m *Method) requireES(op string) {
	if !m.esInitialized {
		panic(fmt.Sprintf("%s: %s requires InitializeEquationSystems", m.name, op))
	}
}

func (m *Method) requireNotInitialized(op string) {
	if m.dataInitialized {
		panic(fmt.Sprintf("%s: %s must be called before InitializeData", m.name, op))
	}
}

// splitKinds lists the split-force and jump fields registered for dim-D
// split-force parts.
func (m *Method) splitKinds() []fields.Kind {
	ks := []fields.Kind{fields.ForceN, fields.ForceT, fields.PressureJump, fields.DPressureJump, fields.DUJump, fields.DVJump}
	if m.Dim() == 3 {
		ks = append(ks, fields.ForceB, fields.DWJump)
	}
	if m.opts.UseHigherOrderJump {
		ks = append(ks, fields.D2UJump, fields.D2VJump)
		if m.Dim() == 3 {
			ks = append(ks, fields.D2WJump)
		}
	}
	return ks
}

// kindVars returns the component count of a field kind in dim dimensions.
func kindVars(k fields.Kind, dim int) int {
	switch k {
	case fields.PressureJump, fields.DPressureJump:
		return 1
	}
	return dim
}
