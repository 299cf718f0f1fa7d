package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis.
var Up = mgl64.Vec3{0, 1, 0}

// Forward is the local forward axis of every frame.
var Forward = mgl64.Vec3{0, 0, 1}

// Right is the local right axis of every frame.
var Right = mgl64.Vec3{1, 0, 0}

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	return mgl64.Clamp(v, 0, 1)
}

// ClosestPointOnSegment returns the point of segment ab closest to p along
// with its clamped parametric position. A zero-length segment yields a.
func ClosestPointOnSegment(a, b, p mgl64.Vec3) (mgl64.Vec3, float64) {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a, 0
	}
	t := Clamp01(p.Sub(a).Dot(ab) / lenSq)
	return a.Add(ab.Mul(t)), t
}

// Distance is the euclidean distance between two points.
func Distance(a, b mgl64.Vec3) float64 {
	return b.Sub(a).Len()
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Direction returns the unit vector from a to b, or the zero vector when the
// points coincide.
func Direction(a, b mgl64.Vec3) mgl64.Vec3 {
	d := b.Sub(a)
	if d.Dot(d) == 0 {
		return mgl64.Vec3{}
	}
	return d.Normalize()
}

// YawRotation returns a rotation of deg degrees around the up axis.
func YawRotation(deg float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(deg), Up)
}

// LookRotation returns the rotation facing dir with no roll: a yaw around Up
// followed by a pitch along the slope. The second result is false when dir
// has no horizontal component.
func LookRotation(dir mgl64.Vec3) (mgl64.Quat, bool) {
	horizontal := math.Hypot(dir.X(), dir.Z())
	if horizontal == 0 {
		return mgl64.QuatIdent(), false
	}
	yaw := mgl64.QuatRotate(math.Atan2(dir.X(), dir.Z()), Up)
	pitch := mgl64.QuatRotate(-math.Atan2(dir.Y(), horizontal), Right)
	return yaw.Mul(pitch), true
}

// Yaw returns the heading of a rotation in degrees within [0, 360).
func Yaw(q mgl64.Quat) float64 {
	f := q.Rotate(Forward)
	return NormalizeDegrees(mgl64.RadToDeg(math.Atan2(f.X(), f.Z())))
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Frame is a position and rotation that local coordinates are expressed in.
// The zero value is the world frame.
type Frame struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewFrame creates a frame at pos rotated yaw degrees around the up axis.
func NewFrame(pos mgl64.Vec3, yaw float64) Frame {
	return Frame{Position: pos, Rotation: YawRotation(yaw)}
}

func (f Frame) rotation() mgl64.Quat {
	if f.Rotation == (mgl64.Quat{}) {
		return mgl64.QuatIdent()
	}
	return f.Rotation
}

// ToWorld transforms a point from frame-local to world coordinates.
func (f Frame) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return f.Position.Add(f.rotation().Rotate(local))
}

// ToLocal transforms a world point into frame-local coordinates.
func (f Frame) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return f.rotation().Inverse().Rotate(world.Sub(f.Position))
}

// Yaw returns the heading of the frame in degrees.
func (f Frame) Yaw() float64 {
	return Yaw(f.rotation())
}
