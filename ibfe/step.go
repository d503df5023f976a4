package ibfe

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Changwei1996/ibfe/fields"
)

// phase tracks the position of the controller inside one time step. The
// order is a programming contract: violating it panics rather than being
// recovered from.
type phase uint8

const (
	phasePre phase = iota
	phaseVelocityInterpolated
	phasePositionAdvanced
	phaseForceComputed
	phaseForceSpread
	phasePost
)

func (p phase) String() string {
	switch p {
	case phasePre:
		return "PRE"
	case phaseVelocityInterpolated:
		return "VELOCITY_INTERPOLATED"
	case phasePositionAdvanced:
		return "POSITION_ADVANCED"
	case phaseForceComputed:
		return "FORCE_COMPUTED"
	case phaseForceSpread:
		return "FORCE_SPREAD"
	case phasePost:
		return "POST"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (m *Method) requirePhase(op string, allowed ...phase) {
	for _, p := range allowed {
		if m.phase == p {
			return
		}
	}
	panic(fmt.Sprintf("%s: %s called in phase %s", m.name, op, m.phase))
}

const timeTol = 1e-12

// snapshotAt maps a time level within the current step to its snapshot.
// A time that matches none of current/half/new is a usage error.
func (m *Method) snapshotAt(t float64) fields.Snapshot {
	switch {
	case math.Abs(t-m.currentTime) <= timeTol*(1+math.Abs(t)):
		return fields.Current
	case math.Abs(t-m.halfTime) <= timeTol*(1+math.Abs(t)):
		return fields.Half
	case math.Abs(t-m.newTime) <= timeTol*(1+math.Abs(t)):
		return fields.New
	}
	panic(fmt.Sprintf("%s: time %v matches no snapshot of step [%v, %v]", m.name, t, m.currentTime, m.newTime))
}

// PreprocessIntegrateData begins the step [currentTime, newTime]: working
// snapshots are seeded from the committed current state, force accumulators
// reset, and pre-fluid-solve callbacks run.
func (m *Method) PreprocessIntegrateData(currentTime, newTime float64) {
	if !m.hierarchyInitialized {
		panic(fmt.Sprintf("%s: stepping requires InitializePatchHierarchy", m.name))
	}
	m.requirePhase("PreprocessIntegrateData", phasePost)
	if newTime <= currentTime {
		panic(fmt.Sprintf("%s: non-positive step [%v, %v]", m.name, currentTime, newTime))
	}
	m.currentTime = currentTime
	m.newTime = newTime
	m.halfTime = currentTime + (newTime-currentTime)/2

	for p := 0; p < m.NumParts(); p++ {
		for _, k := range m.store.Kinds(p) {
			cur := m.store.V(p, k, fields.Current)
			if k == fields.Force || isJumpKind(k) {
				cur.Zero()
			}
			m.store.V(p, k, fields.New).CopyFrom(cur)
			m.store.V(p, k, fields.Half).CopyFrom(cur)
		}
	}
	for _, fn := range m.preFluidSolve {
		fn(currentTime, newTime)
	}
	m.phase = phasePre
}

// PostprocessIntegrateData commits the working state: new positions and
// velocities become current, the half-time force becomes the committed
// force, and scratch ghost data is discarded.
func (m *Method) PostprocessIntegrateData(currentTime, newTime float64) {
	m.requirePhase("PostprocessIntegrateData", phaseForceSpread)
	m.checkStepTimes("PostprocessIntegrateData", currentTime, newTime)

	for p := 0; p < m.NumParts(); p++ {
		for _, k := range m.store.Kinds(p) {
			switch k {
			case fields.Coords0:
				// Reference position never advances.
			case fields.Coords, fields.Velocity:
				m.store.V(p, k, fields.Current).CopyFrom(m.store.V(p, k, fields.New))
			default:
				// Forces, jumps, and diagnostics live at the half step.
				m.store.V(p, k, fields.Current).CopyFrom(m.store.V(p, k, fields.Half))
			}
		}
		m.store.DropGhosts(p)
		m.UpdateCoordinateMapping(p)
	}
	m.phase = phasePost
	m.log.Debug("step committed", zap.Float64("t", newTime))
}

// ForwardEulerStep advances X_new = X_cur + dt*U_cur, with the half-time
// position as midpoint predictor.
func (m *Method) ForwardEulerStep(currentTime, newTime float64) {
	m.requirePhase("ForwardEulerStep", phaseVelocityInterpolated, phasePositionAdvanced)
	m.checkStepTimes("ForwardEulerStep", currentTime, newTime)
	dt := newTime - currentTime
	for p := 0; p < m.NumParts(); p++ {
		xc := m.store.V(p, fields.Coords, fields.Current)
		uc := m.store.V(p, fields.Velocity, fields.Current)
		xn := m.store.V(p, fields.Coords, fields.New)
		xh := m.store.V(p, fields.Coords, fields.Half)
		xn.CopyFrom(xc)
		xn.AXPY(dt, uc)
		xh.CopyFrom(xc)
		xh.AXPY(dt/2, uc)
	}
	m.phase = phasePositionAdvanced
}

// MidpointStep advances X_new = X_cur + dt*U_half using the velocity
// interpolated at the half-time level.
func (m *Method) MidpointStep(currentTime, newTime float64) {
	m.requirePhase("MidpointStep", phaseVelocityInterpolated, phasePositionAdvanced)
	m.checkStepTimes("MidpointStep", currentTime, newTime)
	dt := newTime - currentTime
	for p := 0; p < m.NumParts(); p++ {
		xc := m.store.V(p, fields.Coords, fields.Current)
		uh := m.store.V(p, fields.Velocity, fields.Half)
		xn := m.store.V(p, fields.Coords, fields.New)
		xh := m.store.V(p, fields.Coords, fields.Half)
		xn.CopyFrom(xc)
		xn.AXPY(dt, uh)
		xh.CopyFrom(xc)
		xh.AXPY(dt/2, uh)
	}
	m.phase = phasePositionAdvanced
}

// TrapezoidalStep advances X_new = X_cur + dt/2*(U_cur + U_new) using a
// predictor velocity interpolated at the new time level.
func (m *Method) TrapezoidalStep(currentTime, newTime float64) {
	m.requirePhase("TrapezoidalStep", phaseVelocityInterpolated, phasePositionAdvanced)
	m.checkStepTimes("TrapezoidalStep", currentTime, newTime)
	dt := newTime - currentTime
	for p := 0; p < m.NumParts(); p++ {
		xc := m.store.V(p, fields.Coords, fields.Current)
		uc := m.store.V(p, fields.Velocity, fields.Current)
		un := m.store.V(p, fields.Velocity, fields.New)
		xn := m.store.V(p, fields.Coords, fields.New)
		xh := m.store.V(p, fields.Coords, fields.Half)
		xn.CopyFrom(xc)
		xn.AXPY(dt/2, uc)
		xn.AXPY(dt/2, un)
		xh.CopyFrom(xc)
		xh.AXPY(dt/4, uc)
		xh.AXPY(dt/4, un)
	}
	m.phase = phasePositionAdvanced
}

func (m *Method) checkStepTimes(op string, currentTime, newTime float64) {
	if math.Abs(currentTime-m.currentTime) > timeTol*(1+math.Abs(currentTime)) ||
		math.Abs(newTime-m.newTime) > timeTol*(1+math.Abs(newTime)) {
		panic(fmt.Sprintf("%s: %s times [%v, %v] do not match preprocessed step [%v, %v]",
			m.name, op, currentTime, newTime, m.currentTime, m.newTime))
	}
}

func isJumpKind(k fields.Kind) bool {
	switch k {
	case fields.ForceN, fields.ForceT, fields.ForceB,
		fields.PressureJump, fields.DPressureJump,
		fields.DUJump, fields.DVJump, fields.DWJump,
		fields.D2UJump, fields.D2VJump, fields.D2WJump:
		return true
	}
	return false
}
