package approach

import (
	"math"

	"github.com/OCAP2/dockyard/pkg/core"
)

// Frame maps planar approach coordinates onto station space around a slot.
// Planar X is radial (world +Y), planar Y is along-track (horizontal,
// perpendicular to the slot's approach angle).
type Frame struct {
	Origin     core.Position `json:"origin"`
	AlongTrack core.Position `json:"alongTrack"` // unit vector in the X/Z plane
}

// NewFrame builds the approach frame for a docking slot.
func NewFrame(slot core.DockingSlot) Frame {
	rad := core.Radians(slot.ApproachAngle)
	return Frame{
		Origin:     slot.Position,
		AlongTrack: core.Position{X: -math.Sin(rad), Z: math.Cos(rad)},
	}
}

// ToWorld converts a planar position into a station position.
func (f Frame) ToWorld(p core.Vec2) core.Position {
	return f.Origin.
		Add(core.Position{Y: p.X}).
		Add(f.AlongTrack.Scale(p.Y))
}

// FromWorld is the inverse of ToWorld for positions on the frame's plane.
func (f Frame) FromWorld(pos core.Position) core.Vec2 {
	d := pos.Sub(f.Origin)
	return core.Vec2{
		X: d.Y,
		Y: d.X*f.AlongTrack.X + d.Z*f.AlongTrack.Z,
	}
}
