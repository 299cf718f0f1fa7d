package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3FromString_Valid(t *testing.T) {
	v, err := Vec3FromString("1.5, -2,10")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1.5, -2, 10}, v)
}

func TestVec3FromString_Invalid(t *testing.T) {
	for _, in := range []string{"", "1,2", "1,2,3,4", "a,b,c", "1,,3"} {
		_, err := Vec3FromString(in)
		assert.True(t, errors.Is(err, ErrInvalidCoordinates), "input %q", in)
	}
}

func TestLonLatFromString(t *testing.T) {
	lon, lat, elev, err := LonLatFromString("2.17,41.38,12")
	require.NoError(t, err)
	assert.Equal(t, 2.17, lon)
	assert.Equal(t, 41.38, lat)
	assert.Equal(t, 12.0, elev)

	_, _, elev, err = LonLatFromString("2.17,41.38")
	require.NoError(t, err)
	assert.Equal(t, 0.0, elev)

	_, _, _, err = LonLatFromString("2.17,141.38")
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestGeoreferencer_FirstPointIsOrigin(t *testing.T) {
	var g Georeferencer
	origin := g.Local(2.17, 41.38, 5)
	assert.InDelta(t, 0, origin.X(), 1e-9)
	assert.InDelta(t, 0, origin.Z(), 1e-9)
	assert.Equal(t, 5.0, origin.Y())

	// a point east of the origin lands on +X
	east := g.Local(2.18, 41.38, 0)
	assert.Greater(t, east.X(), 1000.0)
	assert.InDelta(t, 0, east.Z(), 1e-6)
}

func TestClosestPointOnSegment(t *testing.T) {
	a := mgl64.Vec3{0, 0, 0}
	b := mgl64.Vec3{10, 0, 0}

	p, tt := ClosestPointOnSegment(a, b, mgl64.Vec3{4, 0, 3})
	assert.True(t, p.ApproxEqual(mgl64.Vec3{4, 0, 0}))
	assert.InDelta(t, 0.4, tt, 1e-12)

	p, tt = ClosestPointOnSegment(a, b, mgl64.Vec3{-5, 0, 0})
	assert.Equal(t, a, p)
	assert.Equal(t, 0.0, tt)

	p, tt = ClosestPointOnSegment(a, b, mgl64.Vec3{15, 1, 0})
	assert.Equal(t, b, p)
	assert.Equal(t, 1.0, tt)
}

func TestClosestPointOnSegment_ZeroLength(t *testing.T) {
	a := mgl64.Vec3{3, 3, 3}
	p, tt := ClosestPointOnSegment(a, a, mgl64.Vec3{0, 0, 0})
	assert.Equal(t, a, p)
	assert.Equal(t, 0.0, tt)
}

func TestDirection(t *testing.T) {
	d := Direction(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 5})
	assert.True(t, d.ApproxEqual(Forward))
	assert.Equal(t, mgl64.Vec3{}, Direction(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}))
}

func TestLookRotationAndYaw(t *testing.T) {
	q, ok := LookRotation(mgl64.Vec3{1, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 90, Yaw(q), 1e-9)

	q, ok = LookRotation(mgl64.Vec3{0, 0, -1})
	require.True(t, ok)
	assert.InDelta(t, 180, Yaw(q), 1e-9)

	_, ok = LookRotation(mgl64.Vec3{0, 1, 0})
	assert.False(t, ok)
}

func TestLookRotation_PitchesAlongSlope(t *testing.T) {
	tests := []mgl64.Vec3{
		{1, 1, 0},
		{2, -1, 1},
		{-3, 0.5, -4},
	}
	for _, dir := range tests {
		q, ok := LookRotation(dir)
		require.True(t, ok)

		want := dir.Normalize()
		got := q.Rotate(Forward)
		assert.True(t, got.ApproxEqualThreshold(want, 1e-9), "dir %v: got %v", dir, got)
		assert.InDelta(t, 0, q.Rotate(Right).Y(), 1e-9, "dir %v rolled", dir)
		assert.InDelta(t, NormalizeDegrees(mgl64.RadToDeg(math.Atan2(dir.X(), dir.Z()))), Yaw(q), 1e-9)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeDegrees(360))
	assert.Equal(t, 270.0, NormalizeDegrees(-90))
	assert.Equal(t, 45.0, NormalizeDegrees(405))
}

func TestFrame_RoundTrip(t *testing.T) {
	f := NewFrame(mgl64.Vec3{10, 0, 5}, 90)

	// local forward points to world +X for a 90 degree frame
	w := f.ToWorld(mgl64.Vec3{0, 0, 2})
	assert.True(t, w.ApproxEqualThreshold(mgl64.Vec3{12, 0, 5}, 1e-9), "got %v", w)

	back := f.ToLocal(w)
	assert.True(t, back.ApproxEqualThreshold(mgl64.Vec3{0, 0, 2}, 1e-9), "got %v", back)
	assert.InDelta(t, 90, f.Yaw(), 1e-9)
}

func TestFrame_ZeroValueIsWorld(t *testing.T) {
	var f Frame
	p := mgl64.Vec3{1, 2, 3}
	assert.Equal(t, p, f.ToWorld(p))
	assert.Equal(t, p, f.ToLocal(p))
}

func TestLoopLineString(t *testing.T) {
	ls := LoopLineString([]mgl64.Vec3{{0, 0, 0}, {10, 1, 0}, {10, 0, 10}})
	seq := ls.Coordinates()
	require.Equal(t, 4, seq.Length())
	assert.Equal(t, seq.GetXY(0), seq.GetXY(3))
	assert.False(t, math.IsNaN(ls.Length()))

	assert.True(t, LoopLineString(nil).IsEmpty())
}
