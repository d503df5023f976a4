package ibfe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Changwei1996/ibfe/fe"
	"github.com/Changwei1996/ibfe/fields"
	"github.com/Changwei1996/ibfe/grid"
)

// InitializeEquationSystems registers the named field systems of every part
// and builds the keyed field store. Must precede InitializeData.
func (m *Method) InitializeEquationSystems() {
	if m.esInitialized {
		panic(fmt.Sprintf("%s: InitializeEquationSystems called twice", m.name))
	}
	dim := m.Dim()
	m.es = make([]*fe.EquationSystems, m.NumParts())
	m.store = fields.NewStore(m.NumParts())

	for p, mesh := range m.meshes {
		es := fe.NewEquationSystems(mesh)
		m.es[p] = es

		kinds := []fields.Kind{fields.Coords, fields.Coords0, fields.CoordMapping, fields.Velocity, fields.Force}
		if m.opts.SplitForce() {
			kinds = append(kinds, m.splitKinds()...)
			kinds = append(kinds, fields.WSSIn, fields.WSSOut, fields.Traction)
		}
		for _, k := range kinds {
			nv := kindVars(k, dim)
			es.AddSystem(k.SystemName(), nv)
			m.store.Register(p, k, mesh.NumNodes()*nv)
		}
	}
	m.esInitialized = true
	m.log.Info("equation systems initialized",
		zap.String("object", m.name), zap.Int("parts", m.NumParts()))
}

// InitializeData populates the reference and initial coordinates, applies
// the registered coordinate mappings, and assembles the mass operators used
// to project quadrature-point data to nodes. Must precede
// InitializePatchHierarchy.
func (m *Method) InitializeData() {
	m.requireES("InitializeData")
	if m.dataInitialized {
		panic(fmt.Sprintf("%s: InitializeData called twice", m.name))
	}
	dim := m.Dim()
	m.massProj = make([]*fe.MassProjector, m.NumParts())
	m.nodalW = make([][]float64, m.NumParts())
	m.refC = make([][]float64, m.NumParts())

	for p, mesh := range m.meshes {
		x0 := m.store.V(p, fields.Coords0, fields.Current)
		x := m.store.V(p, fields.Coords, fields.Current)
		dx := m.store.V(p, fields.CoordMapping, fields.Current)
		for n, X := range mesh.Nodes {
			phys := X
			if fn := m.coordMap[p]; fn != nil {
				phys = fn(X)
			}
			for d := 0; d < dim; d++ {
				x0.Set(n*dim+d, X[d])
				x.Set(n*dim+d, phys[d])
				dx.Set(n*dim+d, phys[d]-X[d])
			}
		}
		// Reference position never changes: mirror it into every snapshot.
		for _, snap := range []fields.Snapshot{fields.New, fields.Half} {
			m.store.V(p, fields.Coords0, snap).CopyFrom(x0)
			m.store.V(p, fields.Coords, snap).CopyFrom(x)
		}

		m.refC[p] = x0.Clone().Data()
		rule := m.forceRule(mesh.Type)
		m.massProj[p] = fe.NewMassProjector(mesh, m.refC[p], rule, m.opts.UseConsistentMassMatrix)
		m.nodalW[p] = lumpedWeights(mesh, m.refC[p], rule)
	}
	m.dataInitialized = true
	m.log.Info("lagrangian data initialized", zap.String("object", m.name))
}

// InitializePatchHierarchy attaches the Eulerian hierarchy and freezes the
// per-part transfer specs. Must be called after InitializeData and before
// any time stepping.
func (m *Method) InitializePatchHierarchy(h grid.Hierarchy) {
	if !m.dataInitialized {
		panic(fmt.Sprintf("%s: InitializePatchHierarchy requires InitializeData", m.name))
	}
	if m.hierarchyInitialized {
		panic(fmt.Sprintf("%s: InitializePatchHierarchy called twice", m.name))
	}
	if h.Dim() != m.Dim() {
		panic(fmt.Sprintf("%s: hierarchy dimension %d does not match structure dimension %d",
			m.name, h.Dim(), m.Dim()))
	}
	m.hierarchy = h
	m.hierarchyInitialized = true
	m.log.Info("patch hierarchy attached",
		zap.String("object", m.name),
		zap.Int("finest_level", h.FinestLevel()),
		zap.Int("min_ghost_width", m.MinimumGhostCellWidth()))
}

// UpdateCoordinateMapping refreshes dX = x - X for a part, useful mainly for
// visualization.
func (m *Method) UpdateCoordinateMapping(part int) {
	m.requireES("UpdateCoordinateMapping")
	x := m.store.V(part, fields.Coords, fields.Current)
	x0 := m.store.V(part, fields.Coords0, fields.Current)
	dx := m.store.V(part, fields.CoordMapping, fields.Current)
	for i := 0; i < dx.Len(); i++ {
		dx.Set(i, x.At(i)-x0.At(i))
	}
}

// forceRule is the quadrature used for force assembly and mass projection.
func (m *Method) forceRule(t fe.ElemType) fe.QuadRule {
	return fe.GaussRule(t, 2)
}

// lumpedWeights assembles the reference-measure nodal weights used by
// nodal-quadrature transfer.
func lumpedWeights(mesh *fe.Mesh, refCoords []float64, rule fe.QuadRule) []float64 {
	w := make([]float64, mesh.NumNodes())
	for _, conn := range mesh.Elems {
		for qp := 0; qp < rule.Len(); qp++ {
			g := fe.EvalGeom(mesh, conn, refCoords, rule.Points[qp], rule.Weights[qp])
			if g.Degenerate {
				continue
			}
			phi := fe.Shape(mesh.Type, rule.Points[qp])
			for a, na := range conn {
				w[na] += phi[a] * g.JxW
			}
		}
	}
	return w
}
