package postgres

import (
	"path/filepath"
	"testing"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/database"
	"github.com/cargoloop/simcore/internal/model"
	"github.com/cargoloop/simcore/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeforeInit(t *testing.T) {
	b := New(config.DatabaseConfig{}, database.NewManager(zerolog.Nop()), nil)

	assert.ErrorIs(t, b.StartSession(&core.Session{}), ErrNotInitialized)
	assert.ErrorIs(t, b.RecordTransfer(&core.TransferEvent{}), ErrNotInitialized)
	assert.ErrorIs(t, b.RecordZoneState(&core.ZoneStateChange{}), ErrNotInitialized)
	assert.ErrorIs(t, b.RecordVehicleState(&core.VehicleState{}), ErrNotInitialized)
	assert.ErrorIs(t, b.EndSession(), ErrNotInitialized)
	_, err := b.Transfers(1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, b.Close())
}

func TestInit_UnreachableServer(t *testing.T) {
	b := New(config.DatabaseConfig{
		Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "d",
	}, database.NewManager(zerolog.Nop()), nil)

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
}

func TestInitWithDB_RecordsThroughGorm(t *testing.T) {
	mgr := database.NewManager(zerolog.Nop())
	db, err := mgr.GetSqliteDB(filepath.Join(t.TempDir(), "pg.db"))
	require.NoError(t, err)

	b := NewWithDB(db, mgr, nil)
	require.NoError(t, b.Init())

	s := &core.Session{UUID: "pg"}
	require.NoError(t, b.StartSession(s))
	assert.NotZero(t, s.ID)
	require.NoError(t, b.RecordTransfer(&core.TransferEvent{ZoneName: "market", Sequence: 1}))
	require.NoError(t, b.EndSession())

	got, err := b.Transfers(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "market", got[0].ZoneName)

	require.NoError(t, b.Close())
	var n int64
	require.NoError(t, db.Model(&model.Session{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
