package fields

import "fmt"

// Kind names a physical field defined over a part's degrees of freedom.
// The set mirrors the equation-system names of the coupling method: the
// deformation map, its time derivatives, the elastic force density and its
// normal/tangential/binormal split, the jump quantities consumed by the
// jump-condition machinery, and wall-shear-stress diagnostics.
type Kind uint8

const (
	Coords Kind = iota // current physical coordinates x
	Coords0            // reference coordinates X (never advanced)
	CoordMapping       // dX = x - X, diagnostics only
	Velocity
	Force
	ForceN // normal transmission force (split mode)
	ForceT // tangential transmission force (split mode)
	ForceB // binormal transmission force (split mode, 3D)
	PressureJump
	DPressureJump
	DUJump
	DVJump
	DWJump
	D2UJump
	D2VJump
	D2WJump
	WSSIn
	WSSOut
	Traction

	numKinds
)

var kindNames = [numKinds]string{
	"IB coordinates system",
	"IB reference coordinates system",
	"IB coordinate mapping system",
	"IB velocity system",
	"IB force system",
	"IB normal force system",
	"IB tangential force system",
	"IB binormal force system",
	"IB pressure jump system",
	"IB pressure jump derivative system",
	"IB du jump system",
	"IB dv jump system",
	"IB dw jump system",
	"IB d2u jump system",
	"IB d2v jump system",
	"IB d2w jump system",
	"IB interior wall shear stress system",
	"IB exterior wall shear stress system",
	"IB fluid traction system",
}

// SystemName returns the equation-system name the field is registered under.
func (k Kind) SystemName() string {
	if k >= numKinds {
		panic(fmt.Sprintf("fields: invalid kind %d", uint8(k)))
	}
	return kindNames[k]
}

func (k Kind) String() string { return k.SystemName() }

// Snapshot selects one of the three temporal copies of a field.
type Snapshot uint8

const (
	Current Snapshot = iota
	New
	Half

	numSnapshots
)

func (s Snapshot) String() string {
	switch s {
	case Current:
		return "current"
	case New:
		return "new"
	case Half:
		return "half"
	}
	return fmt.Sprintf("Snapshot(%d)", uint8(s))
}

type partFields struct {
	snaps  map[Kind]*[numSnapshots]*Vector
	ghosts map[Kind]*Vector
}

// Store is the keyed container store[part][kind][snapshot] -> vector.
// Field registration is fixed at construction time; requesting an
// unregistered field is a fatal usage error.
type Store struct {
	parts []partFields
}

func NewStore(numParts int) *Store {
	s := &Store{parts: make([]partFields, numParts)}
	for p := range s.parts {
		s.parts[p] = partFields{
			snaps:  make(map[Kind]*[numSnapshots]*Vector),
			ghosts: make(map[Kind]*Vector),
		}
	}
	return s
}

func (s *Store) NumParts() int { return len(s.parts) }

func (s *Store) part(p int) *partFields {
	if p < 0 || p >= len(s.parts) {
		panic(fmt.Sprintf("fields: part %d out of range [0,%d)", p, len(s.parts)))
	}
	return &s.parts[p]
}

// Register creates the three snapshots of a field with n entries each.
func (s *Store) Register(p int, k Kind, n int) {
	pf := s.part(p)
	if _, ok := pf.snaps[k]; ok {
		panic(fmt.Sprintf("fields: %q already registered for part %d", k, p))
	}
	var snaps [numSnapshots]*Vector
	for i := range snaps {
		snaps[i] = NewVector(n)
	}
	pf.snaps[k] = &snaps
}

func (s *Store) Registered(p int, k Kind) bool {
	_, ok := s.part(p).snaps[k]
	return ok
}

// V returns the requested snapshot vector.
func (s *Store) V(p int, k Kind, snap Snapshot) *Vector {
	pf := s.part(p)
	snaps, ok := pf.snaps[k]
	if !ok {
		panic(fmt.Sprintf("fields: %q not registered for part %d", k, p))
	}
	if snap >= numSnapshots {
		panic(fmt.Sprintf("fields: invalid snapshot %d", uint8(snap)))
	}
	return snaps[snap]
}

// Ghost returns the ghost-augmented copy of a field built from the given
// snapshot, synchronizing it against mutations committed so far. The copy is
// valid until DropGhosts is called at the end of the transfer phase.
func (s *Store) Ghost(p int, k Kind, snap Snapshot) *Vector {
	g := s.V(p, k, snap).Clone()
	g.GhostSync()
	s.part(p).ghosts[k] = g
	return g
}

// DropGhosts invalidates every ghost copy of a part. Called on every exit
// path of a transfer phase, including error exits.
func (s *Store) DropGhosts(p int) {
	pf := s.part(p)
	for k := range pf.ghosts {
		delete(pf.ghosts, k)
	}
}

// Kinds lists the fields registered for a part, in Kind order.
func (s *Store) Kinds(p int) []Kind {
	pf := s.part(p)
	var ks []Kind
	for k := Kind(0); k < numKinds; k++ {
		if _, ok := pf.snaps[k]; ok {
			ks = append(ks, k)
		}
	}
	return ks
}
