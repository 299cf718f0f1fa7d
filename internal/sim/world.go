// Package sim composes the course, vehicles and zones behind a single
// fixed-step world.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cargoloop/simcore/internal/course"
	"github.com/cargoloop/simcore/internal/dispatcher"
	"github.com/cargoloop/simcore/internal/follower"
	"github.com/cargoloop/simcore/internal/geo"
	"github.com/cargoloop/simcore/internal/vehicle"
	"github.com/cargoloop/simcore/internal/zone"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoPlayer is returned when traffic is added before the player.
var ErrNoPlayer = errors.New("world has no player")

// Config holds the world tunables.
type Config struct {
	// AutoDrive lets the world stop the player at zones and cruise otherwise.
	AutoDrive   bool
	CruiseSpeed float64
	// StateInterval is the simulated time between vehicle state samples.
	// Zero disables sampling.
	StateInterval time.Duration
}

// DefaultConfig returns the stock world tunables.
func DefaultConfig() Config {
	return Config{AutoDrive: true, CruiseSpeed: 8, StateInterval: time.Second}
}

// Agent is a vehicle moved by a follower.
type Agent struct {
	Vehicle  *vehicle.Vehicle
	Follower *follower.Follower
	Player   bool
	// Transfers marks vehicles that zones react to.
	Transfers bool
}

// World owns every simulated object. Step and Snapshot may be called from
// different goroutines.
type World struct {
	mu     sync.RWMutex
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand
	course *course.Course

	player  *Agent
	traffic []*Agent
	zones   []*zone.Zone

	// zone name -> vehicle IDs currently inside
	inside map[string]map[string]bool

	events     *dispatcher.Dispatcher
	now        atomic.Int64
	ticks      atomic.Uint64
	lastSample time.Duration
	spawned    int
}

// NewWorld creates an empty world on c.
func NewWorld(cfg Config, c *course.Course, rng *rand.Rand, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{
		cfg:    cfg,
		logger: logger,
		rng:    rng,
		course: c,
		inside: make(map[string]map[string]bool),
	}
}

// Now returns the simulation clock.
func (w *World) Now() time.Duration {
	return time.Duration(w.now.Load())
}

// Ticks returns the number of completed steps.
func (w *World) Ticks() uint64 {
	return w.ticks.Load()
}

// Course returns the course the world runs on.
func (w *World) Course() *course.Course {
	return w.course
}

// Player returns the player agent, nil before SetPlayer.
func (w *World) Player() *Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.player
}

// SetPlayer places v on the course at start. The travel direction is taken
// towards toward; pass start itself to drive forward.
func (w *World) SetPlayer(v *vehicle.Vehicle, cfg follower.Config, start, toward mgl64.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg.DeactivateDistance = 0
	f := follower.New(w.course, cfg, w.logger.With("vehicle", v.Name()))
	if err := f.Init(start, staticPoint(toward)); err != nil {
		return fmt.Errorf("placing player: %w", err)
	}
	w.player = &Agent{Vehicle: v, Follower: f, Player: true, Transfers: true}
	w.sync(w.player)
	return nil
}

// AddTraffic spawns an AI vehicle at pos heading relative to the player.
func (w *World) AddTraffic(pos mgl64.Vec3, cfg follower.Config) (*Agent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.player == nil {
		return nil, ErrNoPlayer
	}
	w.spawned++
	name := fmt.Sprintf("traffic-%d", w.spawned)
	v := vehicle.New(name, vehicle.Config{}, w.rng, w.logger)
	v.SetFrame(geo.Frame{Position: pos, Rotation: mgl64.QuatIdent()})

	f := follower.New(w.course, cfg, w.logger.With("vehicle", name))
	if err := f.Init(pos, w.player.Vehicle); err != nil {
		return nil, fmt.Errorf("placing %s: %w", name, err)
	}
	a := &Agent{Vehicle: v, Follower: f}
	w.sync(a)
	w.traffic = append(w.traffic, a)
	return a, nil
}

// Traffic returns the active AI agents.
func (w *World) Traffic() []*Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*Agent(nil), w.traffic...)
}

// AddZone registers z and starts forwarding its events.
func (w *World) AddZone(z *zone.Zone) {
	w.mu.Lock()
	defer w.mu.Unlock()

	z.AddObserver(&zoneObserver{w: w})
	w.zones = append(w.zones, z)
	w.inside[z.Name()] = make(map[string]bool)
}

// Zones returns the registered zones.
func (w *World) Zones() []*zone.Zone {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*zone.Zone(nil), w.zones...)
}

// AttachDispatcher routes proximity notifications through d and publishes
// zone and vehicle events on it. The enter and exit handlers run inside Step.
func (w *World) AttachDispatcher(d *dispatcher.Dispatcher) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = d
	d.Register(dispatcher.CmdVehicleEnter, w.handleEnter)
	d.Register(dispatcher.CmdVehicleExit, w.handleExit)
}

// Step advances the world by dt.
func (w *World) Step(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.Now() + dt
	w.now.Store(int64(now))
	w.ticks.Add(1)

	if w.player != nil {
		if w.cfg.AutoDrive {
			w.drive()
		}
		w.player.Follower.Step(dt)
		w.sync(w.player)
	}

	active := w.traffic[:0]
	for _, a := range w.traffic {
		a.Follower.Step(dt)
		w.sync(a)
		if a.Follower.State() == follower.Inactive {
			w.logger.Debug("Traffic vehicle culled", "vehicle", a.Vehicle.Name())
			w.leaveAll(a)
			continue
		}
		active = append(active, a)
	}
	for i := len(active); i < len(w.traffic); i++ {
		w.traffic[i] = nil
	}
	w.traffic = active

	w.updateProximity()

	for _, z := range w.zones {
		z.Step(now)
	}

	if w.cfg.StateInterval > 0 && now-w.lastSample >= w.cfg.StateInterval {
		w.lastSample = now
		w.sampleStates(now)
	}
}

// drive stops the player while a zone wants it and cruises otherwise.
func (w *World) drive() {
	id := w.player.Vehicle.ID()
	for _, z := range w.zones {
		if z.Holds(id) {
			w.player.Follower.SetSpeed(0)
			return
		}
	}
	w.player.Follower.SetSpeed(w.cfg.CruiseSpeed)
}

func (w *World) sync(a *Agent) {
	a.Vehicle.SetFrame(geo.Frame{Position: a.Follower.Position(), Rotation: a.Follower.Rotation()})
	a.Vehicle.SetVelocity(a.Follower.Velocity())
}

func (w *World) agents() []*Agent {
	out := make([]*Agent, 0, len(w.traffic)+1)
	if w.player != nil {
		out = append(out, w.player)
	}
	return append(out, w.traffic...)
}

func (w *World) updateProximity() {
	for _, z := range w.zones {
		members := w.inside[z.Name()]
		for _, a := range w.agents() {
			if !a.Transfers {
				continue
			}
			id := a.Vehicle.ID()
			in := z.Contains(a.Vehicle.Position())
			switch {
			case in && !members[id]:
				members[id] = true
				w.notify(dispatcher.CmdVehicleEnter, z, a)
			case !in && members[id]:
				delete(members, id)
				w.notify(dispatcher.CmdVehicleExit, z, a)
			}
		}
	}
}

func (w *World) leaveAll(a *Agent) {
	id := a.Vehicle.ID()
	for _, z := range w.zones {
		if w.inside[z.Name()][id] {
			delete(w.inside[z.Name()], id)
			w.notify(dispatcher.CmdVehicleExit, z, a)
		}
	}
}

func (w *World) notify(cmd string, z *zone.Zone, a *Agent) {
	e := dispatcher.Event{
		Command: cmd,
		Zone:    z.Name(),
		Vehicle: a.Vehicle.ID(),
		SimTime: w.Now(),
	}
	if w.events != nil && w.events.HasHandler(cmd) {
		if _, err := w.events.Dispatch(e); err != nil {
			w.logger.Error("Proximity event failed", "command", cmd, "error", err)
		}
		return
	}
	if cmd == dispatcher.CmdVehicleEnter {
		w.handleEnter(e)
	} else {
		w.handleExit(e)
	}
}

func (w *World) handleEnter(e dispatcher.Event) (any, error) {
	z, a, err := w.lookup(e)
	if err != nil {
		return nil, err
	}
	return z.OnVehicleEnter(a.Vehicle), nil
}

func (w *World) handleExit(e dispatcher.Event) (any, error) {
	z, a, err := w.lookup(e)
	if err != nil {
		return nil, err
	}
	return z.OnVehicleExit(a.Vehicle), nil
}

// lookup runs with the world lock held by Step.
func (w *World) lookup(e dispatcher.Event) (*zone.Zone, *Agent, error) {
	var z *zone.Zone
	for _, candidate := range w.zones {
		if candidate.Name() == e.Zone {
			z = candidate
			break
		}
	}
	if z == nil {
		return nil, nil, fmt.Errorf("unknown zone %q", e.Zone)
	}
	for _, a := range w.agents() {
		if a.Vehicle.ID() == e.Vehicle {
			return z, a, nil
		}
	}
	return nil, nil, fmt.Errorf("unknown vehicle %q", e.Vehicle)
}

func (w *World) sampleStates(now time.Duration) {
	for _, a := range w.agents() {
		state := a.Vehicle.State()
		state.Time = time.Now()
		state.SimTime = now
		state.Segment = a.Follower.Index()
		w.publish(dispatcher.Event{
			Command: dispatcher.CmdVehicleState,
			Vehicle: state.VehicleID,
			SimTime: now,
			Payload: state,
		})
	}
}

// publish forwards e when something listens for it.
func (w *World) publish(e dispatcher.Event) {
	if w.events == nil || !w.events.HasHandler(e.Command) {
		return
	}
	if _, err := w.events.Dispatch(e); err != nil {
		w.logger.Warn("Event not delivered", "command", e.Command, "error", err)
	}
}

type staticPoint mgl64.Vec3

func (p staticPoint) Position() mgl64.Vec3 { return mgl64.Vec3(p) }
