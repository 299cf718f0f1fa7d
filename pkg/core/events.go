// pkg/core/events.go
package core

import "time"

// TransferDirection tells whether a passenger got on or off a vehicle.
type TransferDirection string

const (
	DirectionBoard  TransferDirection = "board"
	DirectionUnload TransferDirection = "unload"
)

// TransferEvent records a single passenger moved by a zone.
type TransferEvent struct {
	ID          uint
	Time        time.Time
	SimTime     time.Duration
	ZoneName    string
	ZoneKind    string
	VehicleID   string
	PassengerID string
	Direction   TransferDirection
	Position    Position3D // world position after the move
	Pitch       float64
	Sequence    int // 1-based index within the batch
}

// ZoneStateChange records a transition of a zone's state machine.
type ZoneStateChange struct {
	ID          uint
	Time        time.Time
	SimTime     time.Duration
	ZoneName    string
	ZoneKind    string
	From        string
	To          string
	VehicleID   string
	Waiting     []string // passenger IDs still waiting at the zone
	Transferred int
}
