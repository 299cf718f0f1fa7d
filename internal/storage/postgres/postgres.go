// Package postgres implements the storage.Backend interface on a PostgreSQL
// server. Writes go through the queued GORM backend.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/database"
	gormstorage "github.com/cargoloop/simcore/internal/storage/gorm"
	"github.com/cargoloop/simcore/pkg/core"
	"gorm.io/gorm"
)

// ErrNotInitialized is returned by recording calls made before Init.
var ErrNotInitialized = errors.New("postgres backend not initialized")

// Backend connects lazily in Init so a bad server only fails startup once.
type Backend struct {
	cfg  config.DatabaseConfig
	mgr  *database.Manager
	log  *slog.Logger
	db   *gorm.DB
	gorm *gormstorage.Backend
}

// New creates a backend for the configured server.
func New(cfg config.DatabaseConfig, mgr *database.Manager, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, mgr: mgr, log: logger}
}

// NewWithDB uses an existing connection instead of dialing the server.
func NewWithDB(db *gorm.DB, mgr *database.Manager, logger *slog.Logger) *Backend {
	b := New(config.DatabaseConfig{}, mgr, logger)
	b.db = db
	return b
}

// Init connects if needed, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if b.db == nil {
		db, err := b.mgr.GetPostgresDB(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.db = db
	}
	if err := b.mgr.Setup(b.db); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.gorm = gormstorage.New(gormstorage.Dependencies{DB: b.db, Logger: b.log})
	return b.gorm.Init()
}

// Close flushes and stops the writer.
func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return b.gorm.Close()
}

// StartSession inserts the session row.
func (b *Backend) StartSession(s *core.Session) error {
	if b.gorm == nil {
		return ErrNotInitialized
	}
	return b.gorm.StartSession(s)
}

// EndSession flushes the queues and stamps the end time.
func (b *Backend) EndSession() error {
	if b.gorm == nil {
		return ErrNotInitialized
	}
	return b.gorm.EndSession()
}

// RecordVehicleState queues a vehicle state.
func (b *Backend) RecordVehicleState(v *core.VehicleState) error {
	if b.gorm == nil {
		return ErrNotInitialized
	}
	return b.gorm.RecordVehicleState(v)
}

// RecordTransfer queues a transfer event.
func (b *Backend) RecordTransfer(e *core.TransferEvent) error {
	if b.gorm == nil {
		return ErrNotInitialized
	}
	return b.gorm.RecordTransfer(e)
}

// RecordZoneState queues a zone state change.
func (b *Backend) RecordZoneState(e *core.ZoneStateChange) error {
	if b.gorm == nil {
		return ErrNotInitialized
	}
	return b.gorm.RecordZoneState(e)
}

// Transfers lists the session's recent transfers.
func (b *Backend) Transfers(limit int) ([]core.TransferEvent, error) {
	if b.gorm == nil {
		return nil, ErrNotInitialized
	}
	return b.gorm.Transfers(limit)
}
