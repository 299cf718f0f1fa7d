package placement

import (
	"math/rand"
	"testing"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bed() Area {
	return Area{Center: mgl64.Vec3{0, 1, 0}, Size: mgl64.Vec3{2, 2, 4}}
}

func TestCandidate_FloorStaysInsideInset(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)), Config{Radius: 0.3, Attempts: 30})
	for i := 0; i < 200; i++ {
		p := s.Candidate(bed())
		assert.InDelta(t, 0, p.Y(), 1e-12)
		assert.LessOrEqual(t, p.X(), 0.7)
		assert.GreaterOrEqual(t, p.X(), -0.7)
		assert.LessOrEqual(t, p.Z(), 1.7)
		assert.GreaterOrEqual(t, p.Z(), -1.7)
	}
}

func TestCandidate_VolumeUsesWallMargin(t *testing.T) {
	s := New(rand.New(rand.NewSource(2)), Config{Radius: 0.3, WallMargin: 0.2, Attempts: 30, Mode: ModeVolume})
	for i := 0; i < 200; i++ {
		p := s.Candidate(bed())
		assert.LessOrEqual(t, p.X(), 0.5)
		assert.GreaterOrEqual(t, p.X(), -0.5)
		assert.LessOrEqual(t, p.Y(), 1.5)
		assert.GreaterOrEqual(t, p.Y(), 0.5)
	}
}

func TestCandidate_TooSmallCollapsesToCenter(t *testing.T) {
	s := New(rand.New(rand.NewSource(3)), Config{Radius: 5, Attempts: 1})
	p := s.Candidate(bed())
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, p)
}

func TestCandidate_AppliesFrame(t *testing.T) {
	area := Area{
		Center: mgl64.Vec3{0, 0, 2},
		Size:   mgl64.Vec3{0, 0, 0},
		Frame:  geo.NewFrame(mgl64.Vec3{10, 0, 0}, 90),
	}
	s := New(rand.New(rand.NewSource(4)), Config{Attempts: 1})
	p := s.Candidate(area)
	assert.True(t, p.ApproxEqualThreshold(mgl64.Vec3{12, 0, 0}, 1e-9), "got %v", p)
}

func TestPlace_KeepsSpacing(t *testing.T) {
	s := New(rand.New(rand.NewSource(5)), Config{Radius: 0.3, Attempts: 30})
	var placed []mgl64.Vec3
	for i := 0; i < 6; i++ {
		r := s.Place(bed(), placed)
		require.True(t, r.Found)
		placed = append(placed, r.Point)
	}
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			assert.GreaterOrEqual(t, geo.Distance(placed[i], placed[j]), 0.6)
		}
	}
}

func TestPlace_FallsBackToLeastCrowded(t *testing.T) {
	area := Area{Center: mgl64.Vec3{0, 0.5, 0}, Size: mgl64.Vec3{1, 1, 1}}
	s := New(rand.New(rand.NewSource(6)), Config{Radius: 0.4, Attempts: 10})
	occupied := []mgl64.Vec3{{0, 0, 0}}

	r := s.Place(area, occupied)
	assert.False(t, r.Found)
	assert.True(t, r.Fallback)

	// reproduce the draws to check the winner was the farthest one
	replay := New(rand.New(rand.NewSource(6)), Config{Radius: 0.4, Attempts: 10})
	best := -1.0
	for i := 0; i < 10; i++ {
		if d := replay.Candidate(area).Len(); d > best {
			best = d
		}
	}
	assert.InDelta(t, best, r.Point.Len(), 1e-12)
}

func TestPlace_NoAttemptsUsesDefaultSpot(t *testing.T) {
	s := New(rand.New(rand.NewSource(7)), Config{Radius: 0.3})
	r := s.Place(bed(), nil)
	assert.False(t, r.Found)
	assert.False(t, r.Fallback)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, r.Point)

	s = New(rand.New(rand.NewSource(7)), Config{Radius: 0.3, Mode: ModeVolume})
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, s.Place(bed(), nil).Point)
}

func TestPlace_Deterministic(t *testing.T) {
	a := New(rand.New(rand.NewSource(42)), DefaultConfig())
	b := New(rand.New(rand.NewSource(42)), DefaultConfig())
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Place(bed(), nil), b.Place(bed(), nil))
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Volume")
	require.NoError(t, err)
	assert.Equal(t, ModeVolume, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFloor, m)

	_, err = ParseMode("ceiling")
	assert.Error(t, err)
}
