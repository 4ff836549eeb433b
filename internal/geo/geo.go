package geo

import (
	"errors"

	"github.com/OCAP2/dockyard/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// GEO POINTS
// Station space is local and cartesian, so positions are stored as XYZ
// geometries without an SRID. Geometry data is stored in WKB, which both
// SQLite and PostGIS round-trip through the geom Scan/Value methods.

// ErrEmptyGeometry is returned when a geometry carries no coordinates
var ErrEmptyGeometry = errors.New("geometry has no coordinates")

// PointFromPosition converts a station position into an XYZ point
func PointFromPosition(p core.Position) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Z:    p.Z,
		Type: geom.DimXYZ,
	})
}

// PositionFromPoint converts a point back into a station position.
// Points without a Z component come back on the Y=0 plane.
func PositionFromPoint(pt geom.Point) (core.Position, error) {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position{}, ErrEmptyGeometry
	}
	return core.Position{X: c.X, Y: c.Y, Z: c.Z}, nil
}

// TrackLineString converts an approach path into an XYZ linestring.
// A path with fewer than two points has no valid linestring and yields
// an empty geometry.
func TrackLineString(points []core.Position) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
}

// TrackPositions converts a linestring back into an approach path
func TrackPositions(ls geom.LineString) []core.Position {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	out := make([]core.Position, n)
	for i := 0; i < n; i++ {
		c := seq.Get(i)
		out[i] = core.Position{X: c.X, Y: c.Y, Z: c.Z}
	}
	return out
}

// TrackLength is the 3D length of an approach path
func TrackLength(points []core.Position) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i-1].DistanceTo(points[i])
	}
	return total
}
