// Package approach implements the planar relative-motion model that flies
// a module onto its docking slot: Clohessy-Wiltshire style coupling plus a
// saturated PD tracking controller, integrated with semi-implicit Euler.
//
// The planar frame has the slot at the origin. The first axis is radial
// (station vertical) and the second is along-track.
package approach

import "github.com/OCAP2/dockyard/pkg/core"

const (
	DT         = 0.05 // time units per tick
	N          = 0.05 // mean motion
	Kp         = 0.9
	Kd         = 1.2
	Damp       = 0.35
	BaseThrust = 0.02
	ThrustGain = 0.03
	DockRadius = 0.15
	DockSpeed  = 0.1
)

// State is the kinematic state of one approaching module.
type State struct {
	Position core.Vec2 `json:"position"`
	Velocity core.Vec2 `json:"velocity"`
}

// Natural returns the coupling acceleration of the relative-motion model.
func Natural(s State) core.Vec2 {
	p, v := s.Position, s.Velocity
	return core.Vec2{
		X: 3*N*N*p.X + 2*N*v.Y,
		Y: -2 * N * v.X,
	}
}

// MaxThrust is the control magnitude limit for a given tracking error.
func MaxThrust(errDist float64) float64 {
	return BaseThrust + ThrustGain*errDist
}

// Control returns the saturated control acceleration steering s toward target.
func Control(s State, target core.Vec2) core.Vec2 {
	p, v := s.Position, s.Velocity
	e := p.Sub(target)

	u := core.Vec2{
		X: -Kp*e.X - Kd*v.X - (3*N*N*p.X + 2*N*v.Y) - Damp*v.X,
		Y: -Kp*e.Y - Kd*v.Y + 2*N*v.X - Damp*v.Y,
	}

	umax := MaxThrust(e.Length())
	if mag := u.Length(); mag > umax {
		u = u.Scale(umax / mag)
	}
	return u
}

// Step advances s by one tick.
func Step(s State, target core.Vec2) State {
	a := Natural(s).Add(Control(s, target))
	v := s.Velocity.Add(a.Scale(DT))
	p := s.Position.Add(v.Scale(DT))
	return State{Position: p, Velocity: v}
}

// Docked reports whether s is inside docking tolerance of target.
func Docked(s State, target core.Vec2) bool {
	return s.Position.DistanceTo(target) < DockRadius && s.Velocity.Length() < DockSpeed
}
