// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	UUID         string          `json:"uuid"`
	ScenarioName string          `json:"scenarioName"`
	Seed         int64           `json:"seed"`
	TickRateMs   float64         `json:"tickRateMs"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	DurationSec  float64         `json:"durationSec"` // simulation time of the last record
	Course       []WaypointJSON  `json:"course"`
	Zones        []string        `json:"zones"`
	Vehicles     []VehicleJSON   `json:"vehicles"`
	Transfers    []TransferJSON  `json:"transfers"`
	ZoneStates   []ZoneStateJSON `json:"zoneStates"`
	Totals       map[string]int  `json:"totals"` // transfers per zone
}

// WaypointJSON is one course anchor
type WaypointJSON struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
}

// VehicleJSON is a vehicle and its samples. Each position row is
// [simTimeSec, x, y, z, heading, speed, passengers, segment].
type VehicleJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Positions [][]any `json:"positions"`
}

// TransferJSON is one passenger moved by a zone
type TransferJSON struct {
	SimTimeSec  float64    `json:"simTimeSec"`
	Zone        string     `json:"zone"`
	Kind        string     `json:"kind"`
	Direction   string     `json:"direction"`
	VehicleID   string     `json:"vehicleId"`
	PassengerID string     `json:"passengerId"`
	Position    [3]float64 `json:"position"`
	Pitch       float64    `json:"pitch"`
	Sequence    int        `json:"sequence"`
}

// ZoneStateJSON is one zone state transition
type ZoneStateJSON struct {
	SimTimeSec float64 `json:"simTimeSec"`
	Zone       string  `json:"zone"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	VehicleID  string  `json:"vehicleId,omitempty"`
	Waiting    int     `json:"waiting"`
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	name := strings.ReplaceAll(b.session.ScenarioName, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	s := b.session
	export := SessionExport{
		UUID:         s.UUID,
		ScenarioName: s.ScenarioName,
		Seed:         s.Seed,
		TickRateMs:   float64(s.TickRate) / float64(time.Millisecond),
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Zones:        append([]string{}, s.Zones...),
		Vehicles:     make([]VehicleJSON, 0, len(b.vehicleOrder)),
		Transfers:    make([]TransferJSON, 0, len(b.transfers)),
		ZoneStates:   make([]ZoneStateJSON, 0, len(b.zoneStates)),
		Totals:       make(map[string]int),
	}
	if export.EndTime.IsZero() {
		export.EndTime = time.Now().UTC()
	}

	for _, wp := range s.Course {
		export.Course = append(export.Course, WaypointJSON{
			Name:     wp.Name,
			Position: [3]float64{wp.Position.X(), wp.Position.Y(), wp.Position.Z()},
		})
	}

	var last time.Duration
	for _, id := range b.vehicleOrder {
		rec := b.vehicles[id]
		v := VehicleJSON{ID: rec.ID, Name: rec.Name, Positions: make([][]any, 0, len(rec.States))}
		for _, st := range rec.States {
			v.Positions = append(v.Positions, []any{
				st.SimTime.Seconds(),
				st.Position.X, st.Position.Y, st.Position.Z,
				st.Heading, st.Speed, st.Passengers, st.Segment,
			})
			last = max(last, st.SimTime)
		}
		export.Vehicles = append(export.Vehicles, v)
	}

	for _, t := range b.transfers {
		export.Transfers = append(export.Transfers, TransferJSON{
			SimTimeSec:  t.SimTime.Seconds(),
			Zone:        t.ZoneName,
			Kind:        t.ZoneKind,
			Direction:   string(t.Direction),
			VehicleID:   t.VehicleID,
			PassengerID: t.PassengerID,
			Position:    [3]float64{t.Position.X, t.Position.Y, t.Position.Z},
			Pitch:       t.Pitch,
			Sequence:    t.Sequence,
		})
		export.Totals[t.ZoneName]++
		last = max(last, t.SimTime)
	}

	for _, z := range b.zoneStates {
		export.ZoneStates = append(export.ZoneStates, ZoneStateJSON{
			SimTimeSec: z.SimTime.Seconds(),
			Zone:       z.ZoneName,
			From:       z.From,
			To:         z.To,
			VehicleID:  z.VehicleID,
			Waiting:    len(z.Waiting),
		})
		last = max(last, z.SimTime)
	}

	export.DurationSec = last.Seconds()
	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
