// Package spawn scatters traffic vehicles around random course waypoints.
package spawn

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cargoloop/simcore/internal/course"
	"github.com/cargoloop/simcore/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoCourse is logged when there is nothing to spawn on.
var ErrNoCourse = errors.New("spawner has no course")

// Locator is anything with a world position, usually the player.
type Locator interface {
	Position() mgl64.Vec3
}

// Config holds the spawner tunables.
type Config struct {
	Count  int
	Radius float64
	// MinDistanceFromPlayer rejects spots too close to the player.
	MinDistanceFromPlayer float64
	// MaxAttempts bounds the total number of candidates drawn.
	MaxAttempts int
}

// DefaultConfig matches the stock traffic spawner.
func DefaultConfig() Config {
	return Config{Count: 3, Radius: 5, MinDistanceFromPlayer: 20, MaxAttempts: 100}
}

// Spawner picks spawn positions for traffic.
type Spawner struct {
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger
}

func New(cfg Config, rng *rand.Rand, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{cfg: cfg, rng: rng, logger: logger}
}

// Positions returns up to Count spawn points. Fewer are returned when the
// attempt budget runs out; player may be nil.
func (s *Spawner) Positions(c *course.Course, player Locator) []mgl64.Vec3 {
	if c == nil || c.Empty() {
		s.logger.Error("Nothing spawned", "error", ErrNoCourse)
		return nil
	}

	var out []mgl64.Vec3
	attempts := 0
	for len(out) < s.cfg.Count && attempts < s.cfg.MaxAttempts {
		attempts++
		base := c.Waypoint(s.rng.Intn(c.Len()))
		offset := s.insideUnitCircle().Mul(s.cfg.Radius)
		pos := base.Add(mgl64.Vec3{offset.X(), 0, offset.Y()})

		if player != nil && geo.Distance(pos, player.Position()) < s.cfg.MinDistanceFromPlayer {
			continue
		}
		out = append(out, pos)
	}

	if len(out) < s.cfg.Count {
		s.logger.Warn("Spawn attempts exhausted",
			"spawned", len(out),
			"wanted", s.cfg.Count,
			"attempts", attempts)
	}
	return out
}

// insideUnitCircle draws a uniform point in the unit disk.
func (s *Spawner) insideUnitCircle() mgl64.Vec2 {
	r := math.Sqrt(s.rng.Float64())
	theta := s.rng.Float64() * 2 * math.Pi
	return mgl64.Vec2{r * math.Cos(theta), r * math.Sin(theta)}
}
