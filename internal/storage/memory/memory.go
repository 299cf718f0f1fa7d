// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/pkg/core"
)

// ErrNoSession is returned when ending a session that was never started.
var ErrNoSession = errors.New("no session to end")

// VehicleRecord groups a vehicle with all its samples
type VehicleRecord struct {
	ID     string
	Name   string
	States []core.VehicleState
}

// Backend stores session data in memory and exports it to JSON
type Backend struct {
	cfg     config.MemoryConfig
	log     *slog.Logger
	session *core.Session

	vehicles     map[string]*VehicleRecord // keyed by vehicle ID
	vehicleOrder []string
	transfers    []core.TransferEvent
	zoneStates   []core.ZoneStateChange

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:      cfg,
		log:      logger.With("component", "memory-storage"),
		vehicles: make(map[string]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and resets every collection.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.session = s

	b.vehicles = make(map[string]*VehicleRecord)
	b.vehicleOrder = nil
	b.transfers = nil
	b.zoneStates = nil
	b.lastExportPath = ""
	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.log.Info("Session exported", "path", b.lastExportPath, "transfers", len(b.transfers))
	return nil
}

// RecordVehicleState appends a sample to the vehicle's track.
func (b *Backend) RecordVehicleState(v *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.vehicles[v.VehicleID]
	if !ok {
		rec = &VehicleRecord{ID: v.VehicleID, Name: v.Name}
		b.vehicles[v.VehicleID] = rec
		b.vehicleOrder = append(b.vehicleOrder, v.VehicleID)
	}
	rec.States = append(rec.States, *v)
	return nil
}

// RecordTransfer stores a transfer event and assigns its ID.
func (b *Backend) RecordTransfer(e *core.TransferEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e.ID = uint(len(b.transfers) + 1)
	b.transfers = append(b.transfers, *e)
	return nil
}

// RecordZoneState stores a zone state change and assigns its ID.
func (b *Backend) RecordZoneState(e *core.ZoneStateChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e.ID = uint(len(b.zoneStates) + 1)
	b.zoneStates = append(b.zoneStates, *e)
	return nil
}

// Transfers returns up to limit of the most recent transfers, oldest first.
func (b *Backend) Transfers(limit int) ([]core.TransferEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if limit > 0 && len(b.transfers) > limit {
		start = len(b.transfers) - limit
	}
	return append([]core.TransferEvent(nil), b.transfers[start:]...), nil
}

// Vehicle returns the recorded track of one vehicle.
func (b *Backend) Vehicle(id string) (VehicleRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.vehicles[id]
	if !ok {
		return VehicleRecord{}, false
	}
	out := *rec
	out.States = append([]core.VehicleState(nil), rec.States...)
	return out, true
}

// ZoneStates returns every recorded zone state change.
func (b *Backend) ZoneStates() []core.ZoneStateChange {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.ZoneStateChange(nil), b.zoneStates...)
}

// ExportedFilePath returns the path of the last export, empty before one.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
