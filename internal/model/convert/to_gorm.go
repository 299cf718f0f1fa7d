// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"time"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/cargoloop/simcore/internal/model"
	"github.com/cargoloop/simcore/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// positionToPoint converts a Y-up core.Position3D to a Z-up geometry point.
func positionToPoint(p core.Position3D) geom.Point {
	return geo.PointFromVec(p.Vec())
}

// stringsToJSON converts a []string to datatypes.JSON for DB storage.
func stringsToJSON(values []string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	names := make([]string, len(s.Course))
	points := make([]mgl64.Vec3, len(s.Course))
	for i, wp := range s.Course {
		names[i] = wp.Name
		points[i] = wp.Position
	}

	return model.Session{
		ID:           s.ID,
		UUID:         s.UUID,
		StartTime:    s.StartTime,
		ScenarioName: s.ScenarioName,
		Seed:         s.Seed,
		TickRateMs:   float64(s.TickRate) / float64(time.Millisecond),
		Course:       geo.LoopLineString(points),
		Waypoints:    stringsToJSON(names),
		Zones:        stringsToJSON(s.Zones),
	}
}

// CoreToVehicleState converts a core.VehicleState to a GORM model.VehicleState.
func CoreToVehicleState(v core.VehicleState) model.VehicleState {
	return model.VehicleState{
		Time:       v.Time,
		SimTimeMs:  millis(v.SimTime),
		VehicleID:  v.VehicleID,
		Name:       v.Name,
		Segment:    uint16(v.Segment),
		Passengers: uint16(v.Passengers),
		Position:   positionToPoint(v.Position),
		Heading:    float32(v.Heading),
		Speed:      float32(v.Speed),
	}
}

// CoreToTransferEvent converts a core.TransferEvent to a GORM model.TransferEvent.
func CoreToTransferEvent(e core.TransferEvent) model.TransferEvent {
	return model.TransferEvent{
		Time:        e.Time,
		SimTimeMs:   millis(e.SimTime),
		ZoneName:    e.ZoneName,
		ZoneKind:    e.ZoneKind,
		VehicleID:   e.VehicleID,
		PassengerID: e.PassengerID,
		Direction:   string(e.Direction),
		Sequence:    uint16(e.Sequence),
		Pitch:       float32(e.Pitch),
		Position:    positionToPoint(e.Position),
	}
}

// CoreToZoneStateChange converts a core.ZoneStateChange to a GORM model.ZoneStateChange.
func CoreToZoneStateChange(c core.ZoneStateChange) model.ZoneStateChange {
	return model.ZoneStateChange{
		Time:        c.Time,
		SimTimeMs:   millis(c.SimTime),
		ZoneName:    c.ZoneName,
		ZoneKind:    c.ZoneKind,
		FromState:   c.From,
		ToState:     c.To,
		VehicleID:   c.VehicleID,
		Waiting:     stringsToJSON(c.Waiting),
		Transferred: uint16(c.Transferred),
	}
}
