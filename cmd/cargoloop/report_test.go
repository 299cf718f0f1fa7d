package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/database"
	gormstorage "github.com/cargoloop/simcore/internal/storage/gorm"
	"github.com/cargoloop/simcore/pkg/core"
)

func TestWriteReport(t *testing.T) {
	mgr := database.NewManager(zerolog.Nop())
	db, err := mgr.GetSqliteDB(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	require.NoError(t, mgr.Setup(db))

	b := gormstorage.New(gormstorage.Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	s := &core.Session{
		UUID:         "3d0c6d7e-2222-4c1e-9f00-000000000002",
		ScenarioName: "depot-loop",
		Seed:         7,
		StartTime:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Course:       []core.Waypoint{{Name: "WP_0"}, {Name: "WP_1", Position: mgl64.Vec3{10, 0, 0}}},
	}
	require.NoError(t, b.StartSession(s))

	require.NoError(t, b.RecordVehicleState(&core.VehicleState{VehicleID: "truck", Time: time.Now()}))
	for i, pitch := range []float64{1, 1.25, 1.5} {
		require.NoError(t, b.RecordTransfer(&core.TransferEvent{
			Time: time.Now(), SimTime: time.Duration(i+1) * time.Second,
			ZoneName: "depot", Direction: core.DirectionUnload, Pitch: pitch, Sequence: i + 1,
		}))
	}
	require.NoError(t, b.RecordTransfer(&core.TransferEvent{Time: time.Now(), ZoneName: "market", Direction: core.DirectionBoard}))
	require.NoError(t, b.RecordZoneState(&core.ZoneStateChange{
		Time: time.Now(), ZoneName: "depot", From: "idle", To: "vehicleNearby", Waiting: []string{},
	}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	var out bytes.Buffer
	require.NoError(t, writeReport(db, []uint{s.ID}, &out))

	var reports []SessionReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "depot-loop", r.ScenarioName)
	assert.Equal(t, int64(7), r.Seed)
	assert.NotNil(t, r.EndTime)
	assert.Equal(t, int64(1), r.Samples)
	assert.Equal(t, ZoneReport{Unloaded: 3, MaxPitch: 1.5, LastSimMs: 3000}, r.Zones["depot"])
	assert.Equal(t, 1, r.Zones["market"].Boarded)
	require.Len(t, r.States, 1)
	assert.Equal(t, "vehicleNearby", r.States[0].To)
}

func TestWriteReport_UnknownSession(t *testing.T) {
	mgr := database.NewManager(zerolog.Nop())
	db, err := mgr.GetSqliteDB(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	require.NoError(t, mgr.Setup(db))

	err = writeReport(db, []uint{99}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "session 99")
}

func TestOpenReportDB_NeedsSQL(t *testing.T) {
	_, err := openReportDB(config.StorageConfig{Type: "memory"})
	assert.ErrorIs(t, err, errReportBackend)
}

func TestRunReport_BadArgs(t *testing.T) {
	assert.Error(t, runReport(nil, &bytes.Buffer{}))
	assert.ErrorContains(t, runReport([]string{"abc"}, &bytes.Buffer{}), "invalid session id")
}
