// Package ibfe implements the immersed-boundary coupling of a Lagrangian
// finite-element structure to an Eulerian patch hierarchy: velocity
// interpolation onto the structure, explicit structural time stepping,
// weak-form elastic force density with optional normal/tangential splitting,
// force spreading, and direct imposition of pressure and velocity-gradient
// jump conditions.
package ibfe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Changwei1996/ibfe/delta"
)

// JumpImposition selects how jump conditions are applied to intersected grid
// cells. The two strategies are mutually exclusive per run.
type JumpImposition string

const (
	// JumpPointwise evaluates the jump at grid-line crossings and corrects
	// the nearest cell value. Cheap, first-order accurate.
	JumpPointwise JumpImposition = "pointwise"
	// JumpWeak integrates the jump against grid test functions over the
	// intersected region. More accurate, more expensive.
	JumpWeak JumpImposition = "weak"
)

// Options is the recognized configuration surface of the coupling method.
// Zero values fall back to the defaults of DefaultOptions.
type Options struct {
	InterpKernel     string `yaml:"interp_delta_fcn"`
	SpreadKernel     string `yaml:"spread_delta_fcn"`
	InterpQuadrature string `yaml:"interp_quadrature"` // GAUSS or NODAL
	SpreadQuadrature string `yaml:"spread_quadrature"`
	QuadOrder        int    `yaml:"quad_order"`

	// ConservativeSpread requires the spread operator to be the exact
	// discrete adjoint of interpolation, conserving transferred momentum.
	ConservativeSpread bool `yaml:"conservative_spread"`

	SplitNormalForce     bool           `yaml:"split_normal_force"`
	SplitTangentialForce bool           `yaml:"split_tangential_force"`
	UseJumpConditions    bool           `yaml:"use_jump_conditions"`
	UseHigherOrderJump   bool           `yaml:"use_higher_order_jump"`
	JumpMode             JumpImposition `yaml:"jump_imposition"`

	// Mu is the fluid viscosity, needed to scale velocity-gradient jumps.
	Mu float64 `yaml:"mu"`

	UseConsistentMassMatrix bool `yaml:"use_consistent_mass_matrix"`

	// VelInterpWidth is the normal sampling distance, in grid cells, used by
	// the wall-shear-stress and fluid-traction diagnostics.
	VelInterpWidth float64 `yaml:"vel_interp_width"`
}

func DefaultOptions() Options {
	return Options{
		InterpKernel:     delta.IB4.String(),
		SpreadKernel:     delta.IB4.String(),
		InterpQuadrature: delta.GaussQuadrature.String(),
		SpreadQuadrature: delta.GaussQuadrature.String(),
		QuadOrder:        2,
		JumpMode:         JumpPointwise,
		VelInterpWidth:   1.2,
	}
}

// LoadOptions reads options from a YAML file, filling unset keys with
// defaults.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading options: %w", err)
	}
	return ParseOptions(data)
}

func ParseOptions(data []byte) (Options, error) {
	o := DefaultOptions()
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("parsing options: %w", err)
	}
	return o, nil
}

// SplitForce reports whether any transmission-force component is factored
// out of the interior density.
func (o Options) SplitForce() bool {
	return o.SplitNormalForce || o.SplitTangentialForce
}

// Validate rejects conflicting or unrecognized settings before any stepping
// occurs.
func (o Options) Validate() error {
	ik, err := delta.ParseFamily(o.InterpKernel)
	if err != nil {
		return fmt.Errorf("interp_delta_fcn: %w", err)
	}
	sk, err := delta.ParseFamily(o.SpreadKernel)
	if err != nil {
		return fmt.Errorf("spread_delta_fcn: %w", err)
	}
	if _, err := parseQuadType(o.InterpQuadrature); err != nil {
		return fmt.Errorf("interp_quadrature: %w", err)
	}
	if _, err := parseQuadType(o.SpreadQuadrature); err != nil {
		return fmt.Errorf("spread_quadrature: %w", err)
	}
	if o.QuadOrder < 1 || o.QuadOrder > 3 {
		return fmt.Errorf("quad_order %d out of range [1,3]", o.QuadOrder)
	}
	if o.ConservativeSpread && (ik != sk || o.InterpQuadrature != o.SpreadQuadrature) {
		return fmt.Errorf("conservative_spread requires matching interpolation and spreading specs, got %s/%s and %s/%s",
			o.InterpKernel, o.InterpQuadrature, o.SpreadKernel, o.SpreadQuadrature)
	}
	if o.UseJumpConditions && !o.SplitForce() {
		return fmt.Errorf("use_jump_conditions requires split_normal_force or split_tangential_force")
	}
	if o.UseJumpConditions && o.Mu <= 0 {
		return fmt.Errorf("use_jump_conditions requires a positive viscosity mu, got %v", o.Mu)
	}
	if o.UseHigherOrderJump && !o.UseJumpConditions {
		return fmt.Errorf("use_higher_order_jump requires use_jump_conditions")
	}
	switch o.JumpMode {
	case JumpPointwise, JumpWeak:
	default:
		return fmt.Errorf("jump_imposition must be %q or %q, got %q", JumpPointwise, JumpWeak, o.JumpMode)
	}
	if o.VelInterpWidth <= 0 {
		return fmt.Errorf("vel_interp_width must be positive, got %v", o.VelInterpWidth)
	}
	return nil
}

func parseQuadType(s string) (delta.QuadratureType, error) {
	switch s {
	case delta.GaussQuadrature.String():
		return delta.GaussQuadrature, nil
	case delta.NodalQuadrature.String():
		return delta.NodalQuadrature, nil
	}
	return 0, fmt.Errorf("unknown quadrature type %q", s)
}

func (o Options) interpSpec() delta.InterpSpec {
	k, _ := delta.ParseFamily(o.InterpKernel)
	q, _ := parseQuadType(o.InterpQuadrature)
	return delta.InterpSpec{Kernel: k, QuadType: q, QuadOrder: o.QuadOrder}
}

func (o Options) spreadSpec() delta.SpreadSpec {
	k, _ := delta.ParseFamily(o.SpreadKernel)
	q, _ := parseQuadType(o.SpreadQuadrature)
	return delta.SpreadSpec{Kernel: k, QuadType: q, QuadOrder: o.QuadOrder, Conservative: o.ConservativeSpread}
}
