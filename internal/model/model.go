package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&VehicleState{},
	&TransferEvent{},
	&ZoneStateChange{},
}

// Session is one recorded simulation run.
type Session struct {
	ID           uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID         string          `json:"uuid" gorm:"size:36;uniqueIndex"`
	CreatedAt    time.Time       `json:"createdAt"`
	StartTime    time.Time       `json:"startTime" gorm:"type:timestamptz;index:idx_session_start_time"`
	EndTime      *time.Time      `json:"endTime" gorm:"type:timestamptz"`
	ScenarioName string          `json:"scenarioName" gorm:"size:128"`
	Seed         int64           `json:"seed"`
	TickRateMs   float64         `json:"tickRateMs"`
	Course       geom.LineString `json:"course"`    // closed loop, XY plan view with height as Z
	Waypoints    datatypes.JSON  `json:"waypoints"` // ordered waypoint names
	Zones        datatypes.JSON  `json:"zones"`     // zone names known at start
}

func (*Session) TableName() string {
	return "sessions"
}

// VehicleState is a periodic sample of one vehicle.
type VehicleState struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID  uint      `json:"sessionId" gorm:"index:idx_vehiclestate_session_id"`
	Session    Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs  int64     `json:"simTimeMs" gorm:"index:idx_vehiclestate_sim_time"`
	VehicleID  string    `json:"vehicleId" gorm:"size:36;index:idx_vehiclestate_vehicle_id"`
	Name       string    `json:"name" gorm:"size:64"`
	Segment    uint16    `json:"segment"`
	Passengers uint16    `json:"passengers"`

	Position geom.Point `json:"position"` // X east, Y north, Z height
	Heading  float32    `json:"heading"`  // degrees, 0 = north
	Speed    float32    `json:"speed"`    // m/s
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// TransferEvent is one passenger boarding or leaving a vehicle at a zone.
type TransferEvent struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID   uint      `json:"sessionId" gorm:"index:idx_transferevent_session_id"`
	Session     Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs   int64     `json:"simTimeMs" gorm:"index:idx_transferevent_sim_time"`
	ZoneName    string    `json:"zoneName" gorm:"size:64;index:idx_transferevent_zone"`
	ZoneKind    string    `json:"zoneKind" gorm:"size:16"`
	VehicleID   string    `json:"vehicleId" gorm:"size:36"`
	PassengerID string    `json:"passengerId" gorm:"size:36"`
	Direction   string    `json:"direction" gorm:"size:16"` // board, unload
	Sequence    uint16    `json:"sequence"`                 // 1-based index within the batch
	Pitch       float32   `json:"pitch"`

	Position geom.Point `json:"position"` // world position after the move
}

func (*TransferEvent) TableName() string {
	return "transfer_events"
}

// ZoneStateChange is a transition of a zone's state machine.
type ZoneStateChange struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time      `json:"time" gorm:"type:timestamptz;"`
	SessionID   uint           `json:"sessionId" gorm:"index:idx_zonestatechange_session_id"`
	Session     Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs   int64          `json:"simTimeMs"`
	ZoneName    string         `json:"zoneName" gorm:"size:64;index:idx_zonestatechange_zone"`
	ZoneKind    string         `json:"zoneKind" gorm:"size:16"`
	FromState   string         `json:"from" gorm:"size:16"`
	ToState     string         `json:"to" gorm:"size:16"`
	VehicleID   string         `json:"vehicleId" gorm:"size:36"`
	Waiting     datatypes.JSON `json:"waiting"` // passenger IDs still waiting
	Transferred uint16         `json:"transferred"`
}

func (*ZoneStateChange) TableName() string {
	return "zone_state_changes"
}
