// Package zone implements the proximity stations where passengers get on or
// off a stopped vehicle, one at a time on a timer.
package zone

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/cargoloop/simcore/internal/placement"
	"github.com/cargoloop/simcore/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Config holds the tunables of one zone.
type Config struct {
	Name        string
	Kind        Kind
	Persistence Persistence

	Center mgl64.Vec3
	// Radius of the detection sphere.
	Radius        float64
	StopThreshold float64

	InitialDelay time.Duration
	Interval     time.Duration
	// BatchSize caps the passengers moved per visit. Zero moves until the
	// source is drained or the vehicle is full.
	BatchSize int

	// Area is the waiting area of a boarding zone or the drop area of an
	// unloading zone, in world coordinates.
	Area       *placement.Area
	Placement  placement.Config
	FootOffset mgl64.Vec3
	Waiting    CountPolicy

	PitchStep float64
	MaxPitch  float64
}

// DefaultConfig returns the stock tunables for a zone of the given kind.
func DefaultConfig(name string, kind Kind) Config {
	return Config{
		Name:          name,
		Kind:          kind,
		Radius:        5,
		StopThreshold: 0.1,
		InitialDelay:  time.Second,
		Interval:      500 * time.Millisecond,
		Placement:     placement.DefaultConfig(),
		Waiting:       CountPolicy{Mode: CountRandomRange, Fixed: 3, Min: 1, Max: 5},
		PitchStep:     0.1,
		MaxPitch:      3,
	}
}

type batch struct {
	nextAt time.Duration
	moved  int
	pitch  float64
}

// Zone is a transfer station. It is driven by Step and the enter/exit
// notifications and is not safe for concurrent use.
type Zone struct {
	cfg     Config
	logger  *slog.Logger
	sampler *placement.Sampler

	state   State
	vehicle Carrier
	batch   *batch
	now     time.Duration

	// quota used during the current visit
	visitMoved int
	// set when a move failed; cleared on the next enter
	halted      bool
	transferred int

	waiting []*core.Passenger
	dropped []*core.Passenger

	observers []Observer
}

// New creates an idle zone.
func New(cfg Config, rng *rand.Rand, logger *slog.Logger) *Zone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Zone{
		cfg:     cfg,
		logger:  logger.With("zone", cfg.Name, "kind", cfg.Kind.String()),
		sampler: placement.New(rng, cfg.Placement),
	}
}

func (z *Zone) Name() string       { return z.cfg.Name }
func (z *Zone) Kind() Kind         { return z.cfg.Kind }
func (z *Zone) State() State       { return z.state }
func (z *Zone) Config() Config     { return z.cfg }
func (z *Zone) Center() mgl64.Vec3 { return z.cfg.Center }

// Vehicle returns the tracked vehicle, nil when none.
func (z *Zone) Vehicle() Carrier {
	return z.vehicle
}

// Transferred is the number of passengers moved over the zone's lifetime.
func (z *Zone) Transferred() int {
	return z.transferred
}

// Waiting returns a copy of the passengers still waiting to board.
func (z *Zone) Waiting() []*core.Passenger {
	return append([]*core.Passenger(nil), z.waiting...)
}

// Dropped returns a copy of the passengers left in the drop area.
func (z *Zone) Dropped() []*core.Passenger {
	return append([]*core.Passenger(nil), z.dropped...)
}

// AddObserver registers o for state changes and transfers.
func (z *Zone) AddObserver(o Observer) {
	z.observers = append(z.observers, o)
}

// Contains reports whether p lies inside the detection sphere.
func (z *Zone) Contains(p mgl64.Vec3) bool {
	return geo.Distance(z.cfg.Center, p) <= z.cfg.Radius
}

// Populate spawns the waiting passengers drawn from the count policy.
func (z *Zone) Populate() int {
	if z.cfg.Kind != Boarding {
		return 0
	}
	return z.GenerateWaiting(z.cfg.Waiting.Draw(z.sampler.Rand()))
}

// GenerateWaiting places n new passengers in the waiting area and returns how
// many were added.
func (z *Zone) GenerateWaiting(n int) int {
	if z.cfg.Area == nil {
		z.logger.Error("Zone has no waiting area, no passengers generated")
		return 0
	}
	for i := 0; i < n; i++ {
		p := core.NewPassenger(fmt.Sprintf("%s-%d", z.cfg.Name, len(z.waiting)+1))
		z.place(p, anchors(z.waiting))
		z.waiting = append(z.waiting, p)
	}
	z.logger.Debug("Waiting passengers generated", "count", n)
	return n
}

func (z *Zone) place(p *core.Passenger, occupied []mgl64.Vec3) {
	result := z.sampler.Place(*z.cfg.Area, occupied)
	heading := placement.HeadingPolicy{Mode: placement.Random360}.Sample(z.sampler.Rand())
	p.Anchor = result.Point
	p.Heading = heading
	p.Position = result.Point.Sub(geo.YawRotation(heading).Rotate(z.cfg.FootOffset))
	p.Parent = ""
}

func anchors(ps []*core.Passenger) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(ps))
	for i, p := range ps {
		out[i] = p.Anchor
	}
	return out
}

// OnVehicleEnter starts tracking v. It returns false when the zone is
// retired or already tracks another vehicle.
func (z *Zone) OnVehicleEnter(v Carrier) bool {
	if v == nil || z.state == Retired || z.vehicle != nil {
		return false
	}
	z.vehicle = v
	z.visitMoved = 0
	z.halted = false
	z.setState(VehicleNearby)
	return true
}

// OnVehicleExit stops tracking v and cancels any running batch. A batch that
// already moved everything it could is completed instead. Exits of untracked
// vehicles are ignored.
func (z *Zone) OnVehicleExit(v Carrier) bool {
	if v == nil || z.vehicle == nil || z.vehicle.ID() != v.ID() {
		return false
	}
	if z.state == Transferring {
		if z.batchDone() {
			z.complete()
			if z.state == Retired {
				return true
			}
		} else {
			z.logger.Info("Transfer cancelled, vehicle left", "moved", z.batch.moved)
		}
	}
	z.batch = nil
	z.setState(Idle)
	z.vehicle = nil
	return true
}

// Ready reports whether a stop of the tracked vehicle would start a batch.
func (z *Zone) Ready() bool {
	if z.state != VehicleNearby || z.vehicle == nil || z.halted {
		return false
	}
	if z.quotaUsed() {
		return false
	}
	switch z.cfg.Kind {
	case Boarding:
		return len(z.waiting) > 0 && !z.vehicle.Full()
	case Unloading:
		return z.vehicle.Count() > 0
	}
	return false
}

// Holds reports whether the vehicle with the given ID should stay stopped
// here.
func (z *Zone) Holds(vehicleID string) bool {
	if z.vehicle == nil || z.vehicle.ID() != vehicleID {
		return false
	}
	return z.state == Transferring || z.Ready()
}

// Step advances the zone to simulation time now.
func (z *Zone) Step(now time.Duration) {
	z.now = now

	switch z.state {
	case VehicleNearby:
		if z.vehicle.Speed() <= z.cfg.StopThreshold && z.Ready() {
			z.batch = &batch{nextAt: now + z.cfg.InitialDelay, pitch: 1}
			z.setState(Transferring)
			z.logger.Debug("Transfer started", "vehicleId", z.vehicle.ID())
		}
	case Transferring:
		if z.vehicle.Speed() > z.cfg.StopThreshold {
			// leaving during the trailing interval still counts as a full batch
			if z.batchDone() {
				z.complete()
				return
			}
			z.logger.Info("Transfer cancelled, vehicle moving", "moved", z.batch.moved)
			z.batch = nil
			z.setState(VehicleNearby)
			return
		}
		for z.batch != nil && now >= z.batch.nextAt {
			if z.batchDone() {
				z.complete()
				return
			}
			if !z.moveOne() {
				z.logger.Warn("Transfer halted", "moved", z.batch.moved)
				z.halted = true
				z.batch = nil
				z.setState(VehicleNearby)
				return
			}
			z.batch.nextAt += z.cfg.Interval
		}
	}
}

func (z *Zone) quotaUsed() bool {
	return z.cfg.BatchSize > 0 && z.visitMoved >= z.cfg.BatchSize
}

func (z *Zone) batchDone() bool {
	if z.quotaUsed() {
		return true
	}
	switch z.cfg.Kind {
	case Boarding:
		return len(z.waiting) == 0 || z.vehicle.Full()
	default:
		return z.vehicle.Count() == 0
	}
}

func (z *Zone) moveOne() bool {
	var p *core.Passenger
	var dir core.TransferDirection

	switch z.cfg.Kind {
	case Boarding:
		p = z.waiting[0]
		if !z.vehicle.Board(p) {
			return false
		}
		z.waiting[0] = nil
		z.waiting = z.waiting[1:]
		dir = core.DirectionBoard
	default:
		p = z.vehicle.Unload()
		if p == nil {
			return false
		}
		if z.cfg.Area != nil {
			z.place(p, anchors(z.dropped))
		} else {
			z.logger.Error("Zone has no drop area, passenger left in place", "passenger", p.ID)
		}
		z.dropped = append(z.dropped, p)
		dir = core.DirectionUnload
	}

	z.batch.moved++
	z.visitMoved++
	z.transferred++

	t := Transfer{
		At:        z.now,
		Passenger: p,
		Direction: dir,
		VehicleID: z.vehicle.ID(),
		Pitch:     z.batch.pitch,
		Sequence:  z.batch.moved,
	}
	z.batch.pitch = math.Min(z.batch.pitch+z.cfg.PitchStep, z.cfg.MaxPitch)

	for _, o := range z.observers {
		o.PassengerMoved(z, t)
	}
	return true
}

func (z *Zone) complete() {
	z.logger.Info("Transfer complete",
		"moved", z.batch.moved,
		"total", z.transferred,
		"vehicleId", z.vehicle.ID())
	z.batch = nil

	if z.cfg.Persistence == SingleUse {
		z.setState(Retired)
		z.vehicle = nil
		return
	}
	z.setState(VehicleNearby)
}

func (z *Zone) setState(to State) {
	from := z.state
	if from == to {
		return
	}
	z.state = to

	change := StateChange{At: z.now, From: from, To: to}
	if z.vehicle != nil {
		change.VehicleID = z.vehicle.ID()
	}
	for _, o := range z.observers {
		o.StateChanged(z, change)
	}
}

// Indicator returns the colour of the status ring.
func (z *Zone) Indicator() Color {
	switch z.state {
	case Retired:
		return ColorNone
	case VehicleNearby:
		return ColorYellow
	case Transferring:
		if z.cfg.Kind == Unloading {
			return ColorBlue
		}
		return ColorGreen
	default:
		if z.cfg.Kind == Unloading {
			return ColorCyan
		}
		return ColorRed
	}
}
