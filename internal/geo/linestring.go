package geo

import (
	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PointFromVec converts a simulation vector to an XYZ geometry point.
func PointFromVec(v mgl64.Vec3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: v.X(), Y: v.Z()}, Z: v.Y(), Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// LoopLineString builds a closed XYZ line string through the points. The plan
// view (X, Z) becomes the geometry's XY plane and height becomes Z.
// Fewer than two points yield an empty line string.
func LoopLineString(points []mgl64.Vec3) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, (len(points)+1)*3)
	for _, p := range points {
		coords = append(coords, p.X(), p.Z(), p.Y())
	}
	first := points[0]
	coords = append(coords, first.X(), first.Z(), first.Y())
	seq := geom.NewSequence(coords, geom.DimXYZ)
	return geom.NewLineString(seq)
}
