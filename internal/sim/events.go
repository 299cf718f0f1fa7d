package sim

import (
	"time"

	"github.com/cargoloop/simcore/internal/dispatcher"
	"github.com/cargoloop/simcore/internal/zone"
	"github.com/cargoloop/simcore/pkg/core"
)

// zoneObserver turns zone callbacks into dispatcher events. It runs inside
// Step with the world lock held.
type zoneObserver struct {
	w *World
}

func (o *zoneObserver) StateChanged(z *zone.Zone, c zone.StateChange) {
	waiting := z.Waiting()
	ids := make([]string, len(waiting))
	for i, p := range waiting {
		ids[i] = p.ID
	}

	o.w.logger.Debug("Zone state changed",
		"zone", z.Name(),
		"from", c.From.String(),
		"to", c.To.String(),
		"vehicleId", c.VehicleID)

	o.w.publish(dispatcher.Event{
		Command: dispatcher.CmdZoneState,
		Zone:    z.Name(),
		Vehicle: c.VehicleID,
		SimTime: c.At,
		Payload: core.ZoneStateChange{
			Time:        time.Now(),
			SimTime:     c.At,
			ZoneName:    z.Name(),
			ZoneKind:    z.Kind().String(),
			From:        c.From.String(),
			To:          c.To.String(),
			VehicleID:   c.VehicleID,
			Waiting:     ids,
			Transferred: z.Transferred(),
		},
	})
}

func (o *zoneObserver) PassengerMoved(z *zone.Zone, t zone.Transfer) {
	pos := t.Passenger.Anchor
	if t.Passenger.Attached() {
		if a := o.w.agentByID(t.VehicleID); a != nil {
			pos = a.Vehicle.Frame().ToWorld(pos)
		}
	}

	o.w.publish(dispatcher.Event{
		Command: dispatcher.CmdZoneTransfer,
		Zone:    z.Name(),
		Vehicle: t.VehicleID,
		SimTime: t.At,
		Payload: core.TransferEvent{
			Time:        time.Now(),
			SimTime:     t.At,
			ZoneName:    z.Name(),
			ZoneKind:    z.Kind().String(),
			VehicleID:   t.VehicleID,
			PassengerID: t.Passenger.ID,
			Direction:   t.Direction,
			Position:    core.PositionFromVec(pos),
			Pitch:       t.Pitch,
			Sequence:    t.Sequence,
		},
	})
}

func (w *World) agentByID(id string) *Agent {
	for _, a := range w.agents() {
		if a.Vehicle.ID() == id {
			return a
		}
	}
	return nil
}

// ZoneStatus is the externally visible state of a zone.
type ZoneStatus struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	State       string          `json:"state"`
	Indicator   string          `json:"indicator,omitempty"`
	VehicleID   string          `json:"vehicleId,omitempty"`
	Center      core.Position3D `json:"center"`
	Waiting     int             `json:"waiting"`
	Dropped     int             `json:"dropped"`
	Transferred int             `json:"transferred"`
}

// VehicleStatus is the externally visible state of a vehicle.
type VehicleStatus struct {
	core.VehicleState
	Player    bool   `json:"player"`
	Follower  string `json:"follower"`
	Direction int    `json:"direction"`
}

// Snapshot is a consistent copy of the world at one tick.
type Snapshot struct {
	SimTime  time.Duration   `json:"simTime"`
	Ticks    uint64          `json:"ticks"`
	Zones    []ZoneStatus    `json:"zones"`
	Vehicles []VehicleStatus `json:"vehicles"`
}

// Snapshot copies the current world state.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	now := w.Now()
	s := Snapshot{
		SimTime:  now,
		Ticks:    w.Ticks(),
		Zones:    make([]ZoneStatus, 0, len(w.zones)),
		Vehicles: make([]VehicleStatus, 0, len(w.traffic)+1),
	}

	for _, z := range w.zones {
		st := ZoneStatus{
			Name:        z.Name(),
			Kind:        z.Kind().String(),
			State:       z.State().String(),
			Indicator:   string(z.Indicator()),
			Center:      core.PositionFromVec(z.Center()),
			Waiting:     len(z.Waiting()),
			Dropped:     len(z.Dropped()),
			Transferred: z.Transferred(),
		}
		if v := z.Vehicle(); v != nil {
			st.VehicleID = v.ID()
		}
		s.Zones = append(s.Zones, st)
	}

	for _, a := range w.agents() {
		state := a.Vehicle.State()
		state.SimTime = now
		state.Segment = a.Follower.Index()
		s.Vehicles = append(s.Vehicles, VehicleStatus{
			VehicleState: state,
			Player:       a.Player,
			Follower:     a.Follower.State().String(),
			Direction:    a.Follower.Direction(),
		})
	}
	return s
}
