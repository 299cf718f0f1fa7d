package convert

import (
	"encoding/json"
	"time"

	"github.com/cargoloop/simcore/internal/model"
	"github.com/cargoloop/simcore/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// pointToPosition converts a Z-up geometry point back to a Y-up core.Position3D.
func pointToPosition(p geom.Point) core.Position3D {
	coords, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: coords.XY.X, Y: coords.Z, Z: coords.XY.Y}
}

func jsonToStrings(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// TransferEventToCore converts a GORM model.TransferEvent to a core.TransferEvent.
func TransferEventToCore(e model.TransferEvent) core.TransferEvent {
	return core.TransferEvent{
		ID:          e.ID,
		Time:        e.Time,
		SimTime:     time.Duration(e.SimTimeMs) * time.Millisecond,
		ZoneName:    e.ZoneName,
		ZoneKind:    e.ZoneKind,
		VehicleID:   e.VehicleID,
		PassengerID: e.PassengerID,
		Direction:   core.TransferDirection(e.Direction),
		Position:    pointToPosition(e.Position),
		Pitch:       float64(e.Pitch),
		Sequence:    int(e.Sequence),
	}
}

// ZoneStateChangeToCore converts a GORM model.ZoneStateChange to a core.ZoneStateChange.
func ZoneStateChangeToCore(c model.ZoneStateChange) core.ZoneStateChange {
	return core.ZoneStateChange{
		ID:          c.ID,
		Time:        c.Time,
		SimTime:     time.Duration(c.SimTimeMs) * time.Millisecond,
		ZoneName:    c.ZoneName,
		ZoneKind:    c.ZoneKind,
		From:        c.FromState,
		To:          c.ToState,
		VehicleID:   c.VehicleID,
		Waiting:     jsonToStrings(c.Waiting),
		Transferred: int(c.Transferred),
	}
}
