// Package vehicle holds a vehicle's frame, velocity and passenger manifest.
package vehicle

import (
	"log/slog"
	"math/rand"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/cargoloop/simcore/internal/placement"
	"github.com/cargoloop/simcore/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Config describes the cargo bed of a vehicle.
type Config struct {
	// Capacity limits the manifest. Zero means unlimited.
	Capacity int
	// Cargo is the bed passengers stand in, in vehicle coordinates.
	Cargo     *placement.Area
	Placement placement.Config
	// FootOffset is the foot pivot relative to the passenger root.
	FootOffset mgl64.Vec3
	Heading    placement.HeadingPolicy
}

// DefaultHeading faces passengers forward with up to 45 degrees of jitter.
func DefaultHeading() placement.HeadingPolicy {
	return placement.HeadingPolicy{Mode: placement.FixedWithNoise, Angle: 0, Noise: 45}
}

// Vehicle is a passenger carrier. Its velocity is written by whoever drives
// it and only read here.
type Vehicle struct {
	id      string
	name    string
	cfg     Config
	sampler *placement.Sampler
	logger  *slog.Logger

	frame    geo.Frame
	velocity mgl64.Vec3
	manifest []*core.Passenger
}

// New creates an empty vehicle.
func New(name string, cfg Config, rng *rand.Rand, logger *slog.Logger) *Vehicle {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Vehicle{
		id:      id,
		name:    name,
		cfg:     cfg,
		sampler: placement.New(rng, cfg.Placement),
		logger:  logger.With("vehicle", name, "vehicleId", id),
		frame:   geo.Frame{Rotation: mgl64.QuatIdent()},
	}
}

func (v *Vehicle) ID() string   { return v.id }
func (v *Vehicle) Name() string { return v.name }

// Capacity returns the configured limit, zero when unlimited.
func (v *Vehicle) Capacity() int {
	return v.cfg.Capacity
}

// Count returns the number of passengers aboard.
func (v *Vehicle) Count() int {
	return len(v.manifest)
}

// Full reports whether another passenger would exceed capacity.
func (v *Vehicle) Full() bool {
	return v.cfg.Capacity > 0 && len(v.manifest) >= v.cfg.Capacity
}

// Passengers returns a copy of the manifest in boarding order.
func (v *Vehicle) Passengers() []*core.Passenger {
	return append([]*core.Passenger(nil), v.manifest...)
}

// Board finds a free spot in the cargo bed and attaches p to the vehicle.
// It returns false without touching p when the vehicle is full or has no
// cargo bed.
func (v *Vehicle) Board(p *core.Passenger) bool {
	if p == nil {
		return false
	}
	if v.Full() {
		v.logger.Warn("Vehicle is full, passenger not boarded",
			"passenger", p.ID,
			"capacity", v.cfg.Capacity)
		return false
	}
	if v.cfg.Cargo == nil {
		v.logger.Error("Vehicle has no cargo area, passenger not boarded", "passenger", p.ID)
		return false
	}

	occupied := make([]mgl64.Vec3, len(v.manifest))
	for i, other := range v.manifest {
		occupied[i] = other.Anchor
	}
	result := v.sampler.Place(*v.cfg.Cargo, occupied)
	if !result.Found {
		v.logger.Debug("No free spot in cargo area",
			"passenger", p.ID,
			"fallback", result.Fallback)
	}

	heading := v.cfg.Heading.Sample(v.sampler.Rand())
	p.Parent = v.id
	p.Anchor = result.Point
	p.Heading = heading
	p.Position = result.Point.Sub(geo.YawRotation(heading).Rotate(v.cfg.FootOffset))

	v.manifest = append(v.manifest, p)
	return true
}

// Unload detaches the most recently boarded passenger and returns it in world
// coordinates, or nil when the manifest is empty.
func (v *Vehicle) Unload() *core.Passenger {
	n := len(v.manifest)
	if n == 0 {
		return nil
	}
	p := v.manifest[n-1]
	v.manifest[n-1] = nil
	v.manifest = v.manifest[:n-1]

	p.Anchor = v.frame.ToWorld(p.Anchor)
	p.Position = v.frame.ToWorld(p.Position)
	p.Heading = geo.NormalizeDegrees(p.Heading + v.frame.Yaw())
	p.Parent = ""
	return p
}

// Frame returns the vehicle's position and rotation.
func (v *Vehicle) Frame() geo.Frame {
	return v.frame
}

// SetFrame moves the vehicle.
func (v *Vehicle) SetFrame(f geo.Frame) {
	v.frame = f
}

// Position returns the world position.
func (v *Vehicle) Position() mgl64.Vec3 {
	return v.frame.Position
}

// Heading returns the yaw in degrees.
func (v *Vehicle) Heading() float64 {
	return v.frame.Yaw()
}

// SetVelocity records the velocity reported by the driver.
func (v *Vehicle) SetVelocity(vel mgl64.Vec3) {
	v.velocity = vel
}

func (v *Vehicle) Velocity() mgl64.Vec3 {
	return v.velocity
}

// Speed is the magnitude of the velocity.
func (v *Vehicle) Speed() float64 {
	return v.velocity.Len()
}

// State samples the vehicle for recording.
func (v *Vehicle) State() core.VehicleState {
	return core.VehicleState{
		VehicleID:  v.id,
		Name:       v.name,
		Position:   core.PositionFromVec(v.frame.Position),
		Heading:    v.Heading(),
		Speed:      v.Speed(),
		Passengers: len(v.manifest),
	}
}
