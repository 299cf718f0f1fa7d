// pkg/core/vehicle.go
package core

import "time"

// VehicleState represents a vehicle sample at a point in simulation time.
type VehicleState struct {
	VehicleID  string        `json:"vehicleId"`
	Name       string        `json:"name"`
	Time       time.Time     `json:"time"`
	SimTime    time.Duration `json:"simTime"`
	Position   Position3D    `json:"position"`
	Heading    float64       `json:"heading"` // degrees, 0 = +Z
	Speed      float64       `json:"speed"`
	Passengers int           `json:"passengers"`
	Segment    int           `json:"segment"`
}
