package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/database"
	"github.com/cargoloop/simcore/internal/logging"
	"github.com/cargoloop/simcore/internal/model"
	"github.com/cargoloop/simcore/internal/model/convert"
	"github.com/cargoloop/simcore/pkg/core"
)

var errReportBackend = errors.New("report needs a sqlite or postgres storage type")

// SessionReport summarizes one recorded session.
type SessionReport struct {
	ID           uint                   `json:"id"`
	UUID         string                 `json:"uuid"`
	ScenarioName string                 `json:"scenarioName"`
	Seed         int64                  `json:"seed"`
	StartTime    time.Time              `json:"startTime"`
	EndTime      *time.Time             `json:"endTime,omitempty"`
	Samples      int64                  `json:"vehicleSamples"`
	Zones        map[string]ZoneReport  `json:"zones"`
	States       []core.ZoneStateChange `json:"stateChanges"`
}

// ZoneReport is the per zone transfer count and pitch range.
type ZoneReport struct {
	Boarded   int     `json:"boarded"`
	Unloaded  int     `json:"unloaded"`
	MaxPitch  float64 `json:"maxPitch"`
	LastSimMs int64   `json:"lastSimTimeMs"`
}

// runReport prints a JSON report for each session ID read from the
// configured database.
func runReport(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: cargoloop report <session-id>...")
	}
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", arg, err)
		}
		ids = append(ids, uint(id))
	}

	db, err := openReportDB(config.GetStorageConfig())
	if err != nil {
		return err
	}
	return writeReport(db, ids, out)
}

func openReportDB(cfg config.StorageConfig) (*gorm.DB, error) {
	mgr := database.NewManager(logging.NewZerolog(io.Discard, "error", "database"))
	switch cfg.Type {
	case "sqlite":
		return mgr.GetSqliteDB(cfg.SQLite.DumpPath)
	case "postgres":
		return mgr.GetPostgresDB(cfg.Postgres)
	default:
		return nil, fmt.Errorf("%w, got %q", errReportBackend, cfg.Type)
	}
}

func writeReport(db *gorm.DB, ids []uint, out io.Writer) error {
	reports := make([]SessionReport, 0, len(ids))
	for _, id := range ids {
		r, err := buildReport(db, id)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func buildReport(db *gorm.DB, id uint) (SessionReport, error) {
	var session model.Session
	if err := db.Where("id = ?", id).First(&session).Error; err != nil {
		return SessionReport{}, fmt.Errorf("error getting session %d: %w", id, err)
	}

	r := SessionReport{
		ID:           session.ID,
		UUID:         session.UUID,
		ScenarioName: session.ScenarioName,
		Seed:         session.Seed,
		StartTime:    session.StartTime,
		EndTime:      session.EndTime,
		Zones:        make(map[string]ZoneReport),
	}

	if err := db.Model(&model.VehicleState{}).Where("session_id = ?", id).Count(&r.Samples).Error; err != nil {
		return SessionReport{}, fmt.Errorf("error counting vehicle states: %w", err)
	}

	var transfers []model.TransferEvent
	if err := db.Where("session_id = ?", id).Order("id").Find(&transfers).Error; err != nil {
		return SessionReport{}, fmt.Errorf("error getting transfers: %w", err)
	}
	for _, row := range transfers {
		e := convert.TransferEventToCore(row)
		z := r.Zones[e.ZoneName]
		switch e.Direction {
		case core.DirectionBoard:
			z.Boarded++
		case core.DirectionUnload:
			z.Unloaded++
		}
		z.MaxPitch = max(z.MaxPitch, e.Pitch)
		z.LastSimMs = max(z.LastSimMs, e.SimTime.Milliseconds())
		r.Zones[e.ZoneName] = z
	}

	var changes []model.ZoneStateChange
	if err := db.Where("session_id = ?", id).Order("id").Find(&changes).Error; err != nil {
		return SessionReport{}, fmt.Errorf("error getting zone states: %w", err)
	}
	r.States = make([]core.ZoneStateChange, 0, len(changes))
	for _, row := range changes {
		r.States = append(r.States, convert.ZoneStateChangeToCore(row))
	}
	return r, nil
}
