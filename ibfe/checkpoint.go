package ibfe

import (
	"fmt"

	"github.com/Changwei1996/ibfe/fields"
)

// Database is the consumed key/value serialization surface for checkpoint
// records; the external restart mechanism owns the on-disk format.
type Database interface {
	PutInteger(key string, v int)
	PutDouble(key string, v float64)
	PutBool(key string, v bool)
	PutString(key string, v string)
	PutDoubleArray(key string, v []float64)

	GetInteger(key string) (int, bool)
	GetDouble(key string) (float64, bool)
	GetBool(key string) (bool, bool)
	GetString(key string) (string, bool)
	GetDoubleArray(key string) ([]float64, bool)
}

// PutToDatabase writes one checkpoint record: the method parameters and,
// per part, every committed current-snapshot field. Restoring the record
// and resuming reproduces the run exactly.
func (m *Method) PutToDatabase(db Database) {
	m.requireES("PutToDatabase")
	db.PutInteger("num_parts", m.NumParts())
	db.PutInteger("dim", m.Dim())
	db.PutString("interp_delta_fcn", m.opts.InterpKernel)
	db.PutString("spread_delta_fcn", m.opts.SpreadKernel)
	db.PutBool("split_normal_force", m.opts.SplitNormalForce)
	db.PutBool("split_tangential_force", m.opts.SplitTangentialForce)
	db.PutBool("use_jump_conditions", m.opts.UseJumpConditions)
	db.PutBool("use_higher_order_jump", m.opts.UseHigherOrderJump)
	db.PutDouble("mu", m.opts.Mu)
	db.PutDouble("current_time", m.currentTime)

	for p := 0; p < m.NumParts(); p++ {
		for _, k := range m.store.Kinds(p) {
			key := fmt.Sprintf("part_%03d/%s", p, k.SystemName())
			db.PutDoubleArray(key, m.store.V(p, k, fields.Current).Data())
		}
	}
}

// GetFromDatabase restores a checkpoint record written by PutToDatabase.
// Must be called after InitializeData and before InitializePatchHierarchy;
// a record whose structure or method parameters do not match the configured
// method is rejected.
func (m *Method) GetFromDatabase(db Database) error {
	if !m.dataInitialized {
		panic(fmt.Sprintf("%s: GetFromDatabase requires InitializeData", m.name))
	}
	if m.hierarchyInitialized {
		panic(fmt.Sprintf("%s: GetFromDatabase must precede InitializePatchHierarchy", m.name))
	}
	if n, ok := db.GetInteger("num_parts"); !ok || n != m.NumParts() {
		return fmt.Errorf("%s: restart record has %d parts, method has %d", m.name, n, m.NumParts())
	}
	if d, ok := db.GetInteger("dim"); !ok || d != m.Dim() {
		return fmt.Errorf("%s: restart record dimension %d does not match %d", m.name, d, m.Dim())
	}
	if k, ok := db.GetString("interp_delta_fcn"); !ok || k != m.opts.InterpKernel {
		return fmt.Errorf("%s: restart record interp kernel %q does not match %q", m.name, k, m.opts.InterpKernel)
	}
	if k, ok := db.GetString("spread_delta_fcn"); !ok || k != m.opts.SpreadKernel {
		return fmt.Errorf("%s: restart record spread kernel %q does not match %q", m.name, k, m.opts.SpreadKernel)
	}

	for p := 0; p < m.NumParts(); p++ {
		for _, k := range m.store.Kinds(p) {
			key := fmt.Sprintf("part_%03d/%s", p, k.SystemName())
			data, ok := db.GetDoubleArray(key)
			if !ok {
				return fmt.Errorf("%s: restart record missing %q", m.name, key)
			}
			cur := m.store.V(p, k, fields.Current)
			if len(data) != cur.Len() {
				return fmt.Errorf("%s: restart record %q has %d entries, want %d", m.name, key, len(data), cur.Len())
			}
			copy(cur.Data(), data)
			m.store.V(p, k, fields.New).CopyFrom(cur)
			m.store.V(p, k, fields.Half).CopyFrom(cur)
		}
	}
	if t, ok := db.GetDouble("current_time"); ok {
		m.currentTime = t
		m.newTime = t
		m.halfTime = t
	}
	return nil
}

// MemDatabase is an in-memory Database used by tests and as a staging
// buffer for external serializers.
type MemDatabase struct {
	ints    map[string]int
	doubles map[string]float64
	bools   map[string]bool
	strings map[string]string
	arrays  map[string][]float64
}

func NewMemDatabase() *MemDatabase {
	return &MemDatabase{
		ints:    make(map[string]int),
		doubles: make(map[string]float64),
		bools:   make(map[string]bool),
		strings: make(map[string]string),
		arrays:  make(map[string][]float64),
	}
}

func (d *MemDatabase) PutInteger(key string, v int)    { d.ints[key] = v }
func (d *MemDatabase) PutDouble(key string, v float64) { d.doubles[key] = v }
func (d *MemDatabase) PutBool(key string, v bool)      { d.bools[key] = v }
func (d *MemDatabase) PutString(key string, v string)  { d.strings[key] = v }
func (d *MemDatabase) PutDoubleArray(key string, v []float64) {
	c := make([]float64, len(v))
	copy(c, v)
	d.arrays[key] = c
}

func (d *MemDatabase) GetInteger(key string) (int, bool)    { v, ok := d.ints[key]; return v, ok }
func (d *MemDatabase) GetDouble(key string) (float64, bool) { v, ok := d.doubles[key]; return v, ok }
func (d *MemDatabase) GetBool(key string) (bool, bool)      { v, ok := d.bools[key]; return v, ok }
func (d *MemDatabase) GetString(key string) (string, bool)  { v, ok := d.strings[key]; return v, ok }
func (d *MemDatabase) GetDoubleArray(key string) ([]float64, bool) {
	v, ok := d.arrays[key]
	return v, ok
}
