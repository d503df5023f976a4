package fe

import "fmt"

// System is a named vector field over the mesh degrees of freedom. Dof
// numbering is node-major: component c of node n lives at n*NumVars()+c.
type System struct {
	name     string
	numVars  int
	numNodes int
}

func (s *System) Name() string  { return s.name }
func (s *System) NumVars() int  { return s.numVars }
func (s *System) NumDofs() int  { return s.numNodes * s.numVars }
func (s *System) Dof(node, comp int) int {
	if comp < 0 || comp >= s.numVars {
		panic(fmt.Sprintf("fe: component %d out of range for system %q", comp, s.name))
	}
	return node*s.numVars + comp
}

// EquationSystems collects the named systems defined over one mesh. Names
// are fixed at initialization; looking up a missing system is a fatal usage
// error, matching the single-registration lifecycle of the coupling method.
type EquationSystems struct {
	mesh    *Mesh
	order   []string
	systems map[string]*System
}

func NewEquationSystems(m *Mesh) *EquationSystems {
	return &EquationSystems{mesh: m, systems: make(map[string]*System)}
}

func (es *EquationSystems) Mesh() *Mesh { return es.mesh }

func (es *EquationSystems) AddSystem(name string, numVars int) *System {
	if _, ok := es.systems[name]; ok {
		panic(fmt.Sprintf("fe: system %q already registered", name))
	}
	if numVars <= 0 {
		panic(fmt.Sprintf("fe: system %q must have positive variable count", name))
	}
	s := &System{name: name, numVars: numVars, numNodes: es.mesh.NumNodes()}
	es.systems[name] = s
	es.order = append(es.order, name)
	return s
}

func (es *EquationSystems) System(name string) *System {
	s, ok := es.systems[name]
	if !ok {
		panic(fmt.Sprintf("fe: system %q not registered", name))
	}
	return s
}

func (es *EquationSystems) Has(name string) bool {
	_, ok := es.systems[name]
	return ok
}

// SystemNames returns registration order, useful for checkpointing.
func (es *EquationSystems) SystemNames() []string {
	out := make([]string, len(es.order))
	copy(out, es.order)
	return out
}
