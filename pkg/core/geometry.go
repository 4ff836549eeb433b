// pkg/core/geometry.go
package core

import "math"

// Position is a point in station space. Y is the vertical axis; the
// docking plane is X/Z.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns p + o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Scale returns p multiplied by k.
func (p Position) Scale(k float64) Position {
	return Position{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

// Length returns the euclidean norm.
func (p Position) Length() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// DistanceTo returns the 3D distance between p and o.
func (p Position) DistanceTo(o Position) float64 {
	return p.Sub(o).Length()
}

// PlanarDistanceTo returns the distance between p and o projected on the X/Z plane.
func (p Position) PlanarDistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Z-o.Z)
}

// Lerp interpolates between p and o. t is not clamped.
func (p Position) Lerp(o Position, t float64) Position {
	return p.Add(o.Sub(p).Scale(t))
}

// Vec2 is a planar vector used by the approach physics.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v multiplied by k.
func (v Vec2) Scale(k float64) Vec2 {
	return Vec2{X: v.X * k, Y: v.Y * k}
}

// Length returns the euclidean norm.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo returns the distance between v and o.
func (v Vec2) DistanceTo(o Vec2) float64 {
	return v.Sub(o).Length()
}

// DockingSlot is a candidate docking position around a hub.
type DockingSlot struct {
	Position      Position `json:"position"`
	ApproachAngle float64  `json:"approachAngle"` // degrees, [0,360)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
