package zone

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cargoloop/simcore/pkg/core"
)

// Kind selects whether a zone loads or unloads passengers.
type Kind int

const (
	Boarding Kind = iota
	Unloading
)

func (k Kind) String() string {
	switch k {
	case Boarding:
		return "boarding"
	case Unloading:
		return "unloading"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is case insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "boarding", "in":
		return Boarding, nil
	case "unloading", "out":
		return Unloading, nil
	default:
		return Boarding, fmt.Errorf("unknown zone kind %q", s)
	}
}

// Persistence decides what happens after a batch completes.
type Persistence int

const (
	// SingleUse zones retire after their first completed batch.
	SingleUse Persistence = iota
	// Persistent zones go back to waiting for the next stop.
	Persistent
)

func (p Persistence) String() string {
	switch p {
	case SingleUse:
		return "singleUse"
	case Persistent:
		return "persistent"
	default:
		return fmt.Sprintf("Persistence(%d)", int(p))
	}
}

// ParsePersistence is case insensitive. An empty string means single use.
func ParsePersistence(s string) (Persistence, error) {
	switch strings.ToLower(s) {
	case "", "singleuse", "single":
		return SingleUse, nil
	case "persistent":
		return Persistent, nil
	default:
		return SingleUse, fmt.Errorf("unknown zone persistence %q", s)
	}
}

// State of the zone state machine.
type State int

const (
	Idle State = iota
	VehicleNearby
	Transferring
	Retired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case VehicleNearby:
		return "vehicleNearby"
	case Transferring:
		return "transferring"
	case Retired:
		return "retired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Color is the status indicator shown around a zone.
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorCyan   Color = "cyan"
	ColorBlue   Color = "blue"
)

// CountMode selects how many waiting passengers a boarding zone spawns.
type CountMode int

const (
	CountFixed CountMode = iota
	CountRandomRange
)

// CountPolicy draws the number of waiting passengers.
type CountPolicy struct {
	Mode  CountMode
	Fixed int
	Min   int
	Max   int // inclusive
}

// Draw returns the passenger count, never negative.
func (c CountPolicy) Draw(rng *rand.Rand) int {
	n := c.Fixed
	if c.Mode == CountRandomRange {
		n = c.Min
		if c.Max > c.Min {
			n += rng.Intn(c.Max - c.Min + 1)
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// ParseCountMode accepts "fixed" or "randomRange".
func ParseCountMode(s string) (CountMode, error) {
	switch strings.ToLower(s) {
	case "", "fixed":
		return CountFixed, nil
	case "randomrange", "random":
		return CountRandomRange, nil
	default:
		return CountFixed, fmt.Errorf("unknown count mode %q", s)
	}
}

// Carrier is the vehicle side of a transfer.
type Carrier interface {
	ID() string
	Speed() float64
	Count() int
	Full() bool
	Board(p *core.Passenger) bool
	Unload() *core.Passenger
}

// StateChange is delivered to observers on every transition.
type StateChange struct {
	At        time.Duration
	From      State
	To        State
	VehicleID string
}

// Transfer is delivered to observers for every passenger moved.
type Transfer struct {
	At        time.Duration
	Passenger *core.Passenger
	Direction core.TransferDirection
	VehicleID string
	Pitch     float64
	Sequence  int // 1-based within the batch
}

// Observer watches a zone. Calls happen on the simulation goroutine.
type Observer interface {
	StateChanged(z *Zone, change StateChange)
	PassengerMoved(z *Zone, t Transfer)
}
