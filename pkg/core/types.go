// pkg/core/types.go
package core

import "github.com/go-gl/mathgl/mgl64"

// Position3D is a storage-friendly copy of a simulation vector.
type Position3D struct {
	X float64 `json:"x"` // east
	Y float64 `json:"y"` // up
	Z float64 `json:"z"` // north
}

// PositionFromVec converts a simulation vector into a Position3D.
func PositionFromVec(v mgl64.Vec3) Position3D {
	return Position3D{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// Vec returns the position as a simulation vector.
func (p Position3D) Vec() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// Waypoint is one named anchor of a course loop.
// The numeric part of Name decides its order in the loop.
type Waypoint struct {
	Name     string
	Position mgl64.Vec3
}
