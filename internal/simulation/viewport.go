package simulation

import (
	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ZoomLevels are the selectable scales in pixels per station unit.
var ZoomLevels = []float64{50, 70, 100, 140}

const (
	DefaultZoomIndex = 1

	hitRadiusHub   = 16.0
	hitRadiusOther = 12.0
)

// Viewport is the top-down projection of the X/Z plane onto a canvas.
type Viewport struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Offset orb.Point `json:"offset"` // station X/Z at the canvas centre
	zoom   int
}

// NewViewport creates a viewport centred on the origin at the default zoom.
func NewViewport(width, height float64) *Viewport {
	return &Viewport{Width: width, Height: height, zoom: DefaultZoomIndex}
}

// Zoom returns the current zoom level index.
func (v *Viewport) Zoom() int {
	return v.zoom
}

// SetZoom selects a zoom level, clamped to the valid range.
func (v *Viewport) SetZoom(i int) {
	v.zoom = max(0, min(len(ZoomLevels)-1, i))
}

func (v *Viewport) ZoomIn()  { v.SetZoom(v.zoom + 1) }
func (v *Viewport) ZoomOut() { v.SetZoom(v.zoom - 1) }

// Scale returns pixels per station unit.
func (v *Viewport) Scale() float64 {
	return ZoomLevels[v.zoom]
}

// Pan moves the view by a pixel delta, as when dragging the canvas.
func (v *Viewport) Pan(dx, dy float64) {
	s := v.Scale()
	v.Offset = orb.Point{v.Offset.X() - dx/s, v.Offset.Y() - dy/s}
}

// Center returns the canvas centre in pixels.
func (v *Viewport) Center() orb.Point {
	return orb.Point{v.Width / 2, v.Height / 2}
}

// Project maps a station position onto the canvas.
func (v *Viewport) Project(pos core.Position) orb.Point {
	c, s := v.Center(), v.Scale()
	return orb.Point{
		c.X() + (pos.X-v.Offset.X())*s,
		c.Y() + (pos.Z-v.Offset.Y())*s,
	}
}

// Unproject maps a canvas point back onto the docking plane (Y = 0).
func (v *Viewport) Unproject(p orb.Point) core.Position {
	c, s := v.Center(), v.Scale()
	return core.Position{
		X: (p.X()-c.X())/s + v.Offset.X(),
		Z: (p.Y()-c.Y())/s + v.Offset.Y(),
	}
}

// Bounds returns the visible station area as an X/Z bound.
func (v *Viewport) Bounds() orb.Bound {
	tl := v.Unproject(orb.Point{0, 0})
	br := v.Unproject(orb.Point{v.Width, v.Height})
	return orb.Bound{Min: orb.Point{tl.X, tl.Z}, Max: orb.Point{br.X, br.Z}}
}

// HitRadius returns the pick radius in pixels for a module. Markers are
// drawn at a fixed pixel size, so the radius does not follow the zoom.
func HitRadius(m core.Module) float64 {
	if m.IsHubLike() {
		return hitRadiusHub
	}
	return hitRadiusOther
}

// HitTest returns the first module, in registry order, whose projected
// marker strictly contains the canvas point.
func (v *Viewport) HitTest(p orb.Point, modules []core.Module) (core.Module, bool) {
	for _, m := range modules {
		if planar.Distance(p, v.Project(m.Position)) < HitRadius(m) {
			return m, true
		}
	}
	return core.Module{}, false
}

// Click hit-tests a canvas point and zooms in when the pick lands on a
// hub-like module.
func (v *Viewport) Click(p orb.Point, modules []core.Module) (core.Module, bool) {
	m, ok := v.HitTest(p, modules)
	if ok && m.IsHubLike() {
		v.ZoomIn()
	}
	return m, ok
}

// Wheel steps the zoom level; a negative delta zooms in.
func (v *Viewport) Wheel(delta float64) {
	if delta < 0 {
		v.ZoomIn()
	} else {
		v.ZoomOut()
	}
}
