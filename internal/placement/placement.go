// Package placement finds non-overlapping spots for passengers inside a box
// by rejection sampling.
package placement

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
)

// Mode selects which part of the box candidates are drawn from.
type Mode int

const (
	// ModeFloor samples the bottom face of the box, inset by the radius.
	ModeFloor Mode = iota
	// ModeVolume samples the whole box, inset by radius plus wall margin.
	ModeVolume
)

func (m Mode) String() string {
	switch m {
	case ModeFloor:
		return "floor"
	case ModeVolume:
		return "volume"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "floor" or "volume". An empty string means floor.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "floor":
		return ModeFloor, nil
	case "volume":
		return ModeVolume, nil
	default:
		return ModeFloor, fmt.Errorf("unknown placement mode %q", s)
	}
}

// Area is an axis-aligned box given in its own frame. Frame maps box
// coordinates into the parent space (a vehicle or the world).
type Area struct {
	Center mgl64.Vec3
	Size   mgl64.Vec3
	Frame  geo.Frame
}

// FloorCenter is the middle of the bottom face in parent coordinates.
func (a Area) FloorCenter() mgl64.Vec3 {
	return a.Frame.ToWorld(mgl64.Vec3{a.Center.X(), a.Center.Y() - a.Size.Y()/2, a.Center.Z()})
}

// Config holds the sampler tunables.
type Config struct {
	Radius     float64
	WallMargin float64
	Attempts   int
	Mode       Mode
}

// DefaultConfig matches the stock cargo bed.
func DefaultConfig() Config {
	return Config{Radius: 0.3, WallMargin: 0.1, Attempts: 30, Mode: ModeFloor}
}

// Result of a placement. Point is in the area's parent space.
type Result struct {
	Point    mgl64.Vec3
	Found    bool // a candidate cleared every occupied anchor
	Fallback bool // least-crowded candidate was used
}

// Sampler draws candidate points from a seeded generator.
type Sampler struct {
	cfg Config
	rng *rand.Rand
}

// New creates a sampler. rng must not be shared across goroutines.
func New(rng *rand.Rand, cfg Config) *Sampler {
	return &Sampler{cfg: cfg, rng: rng}
}

// Config returns the sampler tunables.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Rand exposes the generator so callers share one deterministic stream.
func (s *Sampler) Rand() *rand.Rand {
	return s.rng
}

// Candidate returns one uniformly drawn point in parent coordinates.
func (s *Sampler) Candidate(area Area) mgl64.Vec3 {
	half := area.Size.Mul(0.5)
	var local mgl64.Vec3

	switch s.cfg.Mode {
	case ModeVolume:
		inset := s.cfg.Radius + s.cfg.WallMargin
		local = mgl64.Vec3{
			area.Center.X() + s.uniform(math.Max(0, half.X()-inset)),
			area.Center.Y() + s.uniform(math.Max(0, half.Y()-inset)),
			area.Center.Z() + s.uniform(math.Max(0, half.Z()-inset)),
		}
	default:
		local = mgl64.Vec3{
			area.Center.X() + s.uniform(math.Max(0, half.X()-s.cfg.Radius)),
			area.Center.Y() - half.Y(),
			area.Center.Z() + s.uniform(math.Max(0, half.Z()-s.cfg.Radius)),
		}
	}
	return area.Frame.ToWorld(local)
}

// uniform returns a value in [-r, r).
func (s *Sampler) uniform(r float64) float64 {
	if r == 0 {
		return 0
	}
	return (s.rng.Float64()*2 - 1) * r
}

// Place looks for a point no closer than twice the radius to any occupied
// anchor. When every attempt collides the candidate with the largest
// distance to its nearest neighbour is returned instead, and with no
// attempts at all the default spot of the area.
func (s *Sampler) Place(area Area, occupied []mgl64.Vec3) Result {
	minDist := 2 * s.cfg.Radius

	var best mgl64.Vec3
	bestDist := -1.0
	for i := 0; i < s.cfg.Attempts; i++ {
		candidate := s.Candidate(area)
		nearest := nearestDistance(candidate, occupied)
		if nearest >= minDist {
			return Result{Point: candidate, Found: true}
		}
		if nearest > bestDist {
			bestDist = nearest
			best = candidate
		}
	}

	if bestDist >= 0 {
		return Result{Point: best, Fallback: true}
	}
	if s.cfg.Mode == ModeVolume {
		return Result{Point: area.Frame.ToWorld(area.Center)}
	}
	return Result{Point: area.FloorCenter()}
}

func nearestDistance(p mgl64.Vec3, others []mgl64.Vec3) float64 {
	nearest := math.Inf(1)
	for _, o := range others {
		if d := geo.Distance(p, o); d < nearest {
			nearest = d
		}
	}
	return nearest
}
