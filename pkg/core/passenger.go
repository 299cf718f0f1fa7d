// pkg/core/passenger.go
package core

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Passenger is a single rider moved between zones and vehicles.
//
// Anchor is the point where the passenger's feet touch the floor and is what
// spacing checks compare against. Position is the root of the passenger after
// the foot offset has been applied. Both are expressed in the frame of Parent,
// or in world space when Parent is empty.
type Passenger struct {
	ID       string
	Name     string
	Anchor   mgl64.Vec3
	Position mgl64.Vec3
	Heading  float64 // degrees around +Y
	Parent   string
}

// NewPassenger creates a passenger with a fresh random ID.
func NewPassenger(name string) *Passenger {
	return &Passenger{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// Attached reports whether the passenger currently rides inside a vehicle.
func (p *Passenger) Attached() bool {
	return p.Parent != ""
}
