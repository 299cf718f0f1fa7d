package scenario

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cargoloop/simcore/internal/course"
	"github.com/cargoloop/simcore/internal/follower"
	"github.com/cargoloop/simcore/internal/geo"
	"github.com/cargoloop/simcore/internal/placement"
	"github.com/cargoloop/simcore/internal/spawn"
	"github.com/cargoloop/simcore/internal/vehicle"
	"github.com/cargoloop/simcore/internal/zone"
	"github.com/cargoloop/simcore/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Player is everything needed to put the player vehicle on the course.
type Player struct {
	Vehicle  *vehicle.Vehicle
	Follower follower.Config
	Start    mgl64.Vec3
	Toward   mgl64.Vec3
}

// Traffic holds the spawner and per-vehicle follower settings.
type Traffic struct {
	Spawn    spawn.Config
	Follower follower.Config
}

// Waypoints resolves the course positions into world space.
func (s *Scenario) Waypoints() ([]core.Waypoint, error) {
	var ref geo.Georeferencer
	out := make([]core.Waypoint, 0, len(s.Course.Waypoints))
	for _, wp := range s.Course.Waypoints {
		var pos mgl64.Vec3
		if s.Course.Georeferenced {
			lon, lat, elev, err := geo.LonLatFromString(wp.Position)
			if err != nil {
				return nil, fmt.Errorf("%w: waypoint %s: %w", ErrInvalidScenario, wp.Name, err)
			}
			pos = ref.Local(lon, lat, elev)
		} else {
			v, err := geo.Vec3FromString(wp.Position)
			if err != nil {
				return nil, fmt.Errorf("%w: waypoint %s: %w", ErrInvalidScenario, wp.Name, err)
			}
			pos = v
		}
		out = append(out, core.Waypoint{Name: wp.Name, Position: pos})
	}
	return out, nil
}

// BuildCourse orders the waypoints into a loop. Naming problems are logged by
// the course and do not fail the build; an empty loop does.
func (s *Scenario) BuildCourse(logger *slog.Logger) (*course.Course, error) {
	wps, err := s.Waypoints()
	if err != nil {
		return nil, err
	}
	c := course.Build(wps, logger)
	if c.Empty() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, course.ErrNoWaypoints)
	}
	return c, nil
}

// BuildPlayer creates the player vehicle. Start defaults to the first
// waypoint of c and Toward to Start, which drives the loop forward.
func (s *Scenario) BuildPlayer(c *course.Course, rng *rand.Rand, logger *slog.Logger) (Player, error) {
	p := s.Player
	cfg := vehicle.Config{
		Capacity:  p.Capacity,
		Placement: placementConfig(p.Placement),
		Heading:   vehicle.DefaultHeading(),
	}
	var err error
	if p.Cargo != nil {
		area := area(*p.Cargo)
		cfg.Cargo = &area
	}
	if cfg.FootOffset, err = optionalVec(p.FootOffset); err != nil {
		return Player{}, err
	}
	if p.Heading != nil && p.Heading.Mode != "" {
		mode, err := placement.ParseHeadingMode(p.Heading.Mode)
		if err != nil {
			return Player{}, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		cfg.Heading = placement.HeadingPolicy{Mode: mode, Angle: p.Heading.Angle, Noise: p.Heading.Noise}
	}

	out := Player{Follower: follower.DefaultConfig()}
	if p.Speed != nil {
		out.Follower.Speed = *p.Speed
	}
	if p.TurnRate != nil {
		out.Follower.TurnRate = *p.TurnRate
	}

	if p.Start != "" {
		out.Start, _ = geo.Vec3FromString(p.Start)
	} else if !c.Empty() {
		out.Start = c.Waypoint(0)
	}
	out.Toward = out.Start
	if p.Toward != "" {
		out.Toward, _ = geo.Vec3FromString(p.Toward)
	}

	out.Vehicle = vehicle.New(p.Name, cfg, rng, logger)
	return out, nil
}

// BuildTraffic returns the spawner settings, or false when the scenario has
// no traffic.
func (s *Scenario) BuildTraffic() (Traffic, bool) {
	t := s.Traffic
	if t == nil || t.Count == 0 {
		return Traffic{}, false
	}
	out := Traffic{Spawn: spawn.DefaultConfig(), Follower: follower.DefaultConfig()}
	out.Spawn.Count = t.Count
	setFloat(&out.Spawn.Radius, t.Radius)
	setFloat(&out.Spawn.MinDistanceFromPlayer, t.MinDistanceFromPlayer)
	if t.MaxAttempts != nil {
		out.Spawn.MaxAttempts = *t.MaxAttempts
	}
	setFloat(&out.Follower.Speed, t.Speed)
	setFloat(&out.Follower.TurnRate, t.TurnRate)
	setFloat(&out.Follower.DeactivateDistance, t.DeactivateDistance)
	return out, true
}

// ZoneConfigs converts every zone, starting from the kind's defaults.
func (s *Scenario) ZoneConfigs() ([]zone.Config, error) {
	out := make([]zone.Config, 0, len(s.Zones))
	for _, zs := range s.Zones {
		cfg, err := zoneConfig(zs)
		if err != nil {
			return nil, fmt.Errorf("%w: zone %s: %w", ErrInvalidScenario, zs.Name, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func zoneConfig(zs ZoneSpec) (zone.Config, error) {
	kind, err := zone.ParseKind(zs.Kind)
	if err != nil {
		return zone.Config{}, err
	}
	cfg := zone.DefaultConfig(zs.Name, kind)
	if cfg.Persistence, err = zone.ParsePersistence(zs.Persistence); err != nil {
		return zone.Config{}, err
	}
	cfg.Center, _ = geo.Vec3FromString(zs.Center)
	setFloat(&cfg.Radius, zs.Radius)
	setFloat(&cfg.StopThreshold, zs.StopThreshold)
	if zs.InitialDelay != nil {
		cfg.InitialDelay = *zs.InitialDelay
	}
	if zs.Interval != nil {
		cfg.Interval = *zs.Interval
	}
	cfg.BatchSize = zs.BatchSize
	if zs.Area != nil {
		a := area(*zs.Area)
		cfg.Area = &a
	}
	cfg.Placement = placementConfig(zs.Placement)
	if cfg.FootOffset, err = optionalVec(zs.FootOffset); err != nil {
		return zone.Config{}, err
	}
	if w := zs.Waiting; w != nil {
		mode, err := zone.ParseCountMode(w.Mode)
		if err != nil {
			return zone.Config{}, err
		}
		if mode == zone.CountRandomRange && w.Max < w.Min {
			return zone.Config{}, fmt.Errorf("waiting range %d..%d is empty", w.Min, w.Max)
		}
		cfg.Waiting = zone.CountPolicy{Mode: mode, Fixed: w.Fixed, Min: w.Min, Max: w.Max}
	}
	setFloat(&cfg.PitchStep, zs.PitchStep)
	setFloat(&cfg.MaxPitch, zs.MaxPitch)
	return cfg, nil
}

// area assumes validated vectors. The box is rotated about its own centre.
func area(a AreaSpec) placement.Area {
	center, _ := geo.Vec3FromString(a.Center)
	size, _ := geo.Vec3FromString(a.Size)
	return placement.Area{Size: size, Frame: geo.NewFrame(center, a.Yaw)}
}

func placementConfig(p *PlacementSpec) placement.Config {
	cfg := placement.DefaultConfig()
	if p == nil {
		return cfg
	}
	setFloat(&cfg.Radius, p.Radius)
	setFloat(&cfg.WallMargin, p.WallMargin)
	if p.Attempts != nil {
		cfg.Attempts = *p.Attempts
	}
	// validated by the oneof tag
	cfg.Mode, _ = placement.ParseMode(p.Mode)
	return cfg
}

func optionalVec(s string) (mgl64.Vec3, error) {
	if s == "" {
		return mgl64.Vec3{}, nil
	}
	return geo.Vec3FromString(s)
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
