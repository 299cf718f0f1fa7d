// pkg/core/session.go
package core

import "time"

// Session represents one recorded simulation run
type Session struct {
	ID           uint
	UUID         string
	ScenarioName string
	Seed         int64
	TickRate     time.Duration
	StartTime    time.Time
	EndTime      time.Time
	Course       []Waypoint
	Zones        []string
}
