// Package follower moves a vehicle along a course by interpolating between
// consecutive waypoints.
package follower

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cargoloop/simcore/internal/course"
	"github.com/cargoloop/simcore/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
)

// segmentEpsilon absorbs float and tick rounding so a follower reaches the
// next waypoint after exactly length/speed seconds.
const segmentEpsilon = 1e-6

// State of a follower.
type State int

const (
	Uninitialized State = iota
	Following
	Inactive
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Following:
		return "following"
	case Inactive:
		return "inactive"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reference is the object the follower picks its direction from and is
// culled against, usually the player vehicle.
type Reference interface {
	Position() mgl64.Vec3
}

// Config holds the movement tunables.
type Config struct {
	Speed    float64 // units per second
	TurnRate float64 // rotation blend factor per second
	// DeactivateDistance culls the follower once it is farther than this
	// from the reference. Zero disables culling.
	DeactivateDistance float64
}

// DefaultConfig matches the stock AI car.
func DefaultConfig() Config {
	return Config{Speed: 5, TurnRate: 5, DeactivateDistance: 50}
}

// Follower is the path-follow cursor of one vehicle.
type Follower struct {
	course *course.Course
	cfg    Config
	logger *slog.Logger

	reference Reference
	state     State
	current   int
	direction int
	t         float64
	speed     float64
	position  mgl64.Vec3
	rotation  mgl64.Quat
}

// New creates an uninitialized follower on c.
func New(c *course.Course, cfg Config, logger *slog.Logger) *Follower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{
		course:   c,
		cfg:      cfg,
		logger:   logger,
		speed:    cfg.Speed,
		rotation: mgl64.QuatIdent(),
	}
}

// Init places the follower on the segment nearest to position and fixes the
// travel direction toward the reference. The direction is never re-evaluated.
func (f *Follower) Init(position mgl64.Vec3, ref Reference) error {
	if f.course == nil || f.course.Empty() {
		f.logger.Error("Follower has no course", "error", course.ErrNoPath)
		return course.ErrNoPath
	}
	if ref == nil {
		return fmt.Errorf("follower init: nil reference")
	}

	current, err := f.course.NearestSegment(position)
	if err != nil {
		return err
	}
	refIndex, err := f.course.NearestSegment(ref.Position())
	if err != nil {
		return err
	}

	f.reference = ref
	f.current = current
	f.direction = 1
	if refIndex < current {
		f.direction = -1
	}
	f.t = 0
	f.position = f.course.Waypoint(current)
	if rot, ok := geo.LookRotation(f.segmentDirection()); ok {
		f.rotation = rot
	}
	f.state = Following

	f.logger.Debug("Follower initialized",
		"segment", current,
		"referenceSegment", refIndex,
		"direction", f.direction)
	return nil
}

// Step advances the follower by dt of simulated time.
func (f *Follower) Step(dt time.Duration) {
	if f.state != Following {
		return
	}
	seconds := dt.Seconds()

	a, b, next := f.segment()
	length := geo.Distance(a, b)
	if length == 0 {
		// zero-length segment, move on without consuming time
		f.current = next
		f.t = 0
		a, b, next = f.segment()
		length = geo.Distance(a, b)
	}

	if length > 0 {
		f.t += f.speed * seconds / length
	}
	if f.t >= 1-segmentEpsilon {
		f.t = 0
		f.current = next
		a, b, _ = f.segment()
	}
	f.position = geo.Lerp(a, b, f.t)

	if target, ok := geo.LookRotation(geo.Direction(a, b)); ok {
		f.rotation = mgl64.QuatNlerp(f.rotation, target, geo.Clamp01(f.cfg.TurnRate*seconds))
	}

	f.checkDeactivate()
}

func (f *Follower) segment() (a, b mgl64.Vec3, next int) {
	next = f.course.Next(f.current, f.direction)
	return f.course.Waypoint(f.current), f.course.Waypoint(next), next
}

func (f *Follower) segmentDirection() mgl64.Vec3 {
	a, b, _ := f.segment()
	return geo.Direction(a, b)
}

func (f *Follower) checkDeactivate() {
	if f.cfg.DeactivateDistance <= 0 || f.reference == nil {
		return
	}
	dist := geo.Distance(f.position, f.reference.Position())
	if dist > f.cfg.DeactivateDistance {
		f.state = Inactive
		f.logger.Debug("Follower deactivated", "distance", dist, "limit", f.cfg.DeactivateDistance)
	}
}

// SetSpeed overrides the cruise speed, e.g. to stop at a zone.
func (f *Follower) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	f.speed = speed
}

// Speed returns the current speed.
func (f *Follower) Speed() float64 {
	return f.speed
}

// Velocity is the current speed along the travelled segment.
func (f *Follower) Velocity() mgl64.Vec3 {
	if f.state != Following {
		return mgl64.Vec3{}
	}
	return f.segmentDirection().Mul(f.speed)
}

func (f *Follower) State() State         { return f.state }
func (f *Follower) Direction() int       { return f.direction }
func (f *Follower) Index() int           { return f.current }
func (f *Follower) T() float64           { return f.t }
func (f *Follower) Position() mgl64.Vec3 { return f.position }
func (f *Follower) Rotation() mgl64.Quat { return f.rotation }

// Heading returns the yaw in degrees.
func (f *Follower) Heading() float64 {
	return geo.Yaw(f.rotation)
}
