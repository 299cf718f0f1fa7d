package worker

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/cargoloop/simcore/internal/storage"
	"github.com/cargoloop/simcore/pkg/core"
)

// ErrUnexpectedPayload is returned when an event carries the wrong payload type.
var ErrUnexpectedPayload = errors.New("unexpected event payload")

// MetricsWriter receives zone events for time-series output.
type MetricsWriter interface {
	WriteTransfer(e core.TransferEvent) error
	WriteZoneState(e core.ZoneStateChange) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Backend storage.Backend
	// Metrics is optional.
	Metrics MetricsWriter
	Logger  *slog.Logger
}

// Stats counts the rows handed to the backend.
type Stats struct {
	VehicleStates int64 `json:"vehicleStates"`
	Transfers     int64 `json:"transfers"`
	ZoneStates    int64 `json:"zoneStates"`
	Failed        int64 `json:"failed"`
}

// Manager records simulation events
type Manager struct {
	deps Dependencies

	vehicleStates atomic.Int64
	transfers     atomic.Int64
	zoneStates    atomic.Int64
	failed        atomic.Int64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "recorder")
	return &Manager{deps: deps}
}

// Stats returns a snapshot of the recorder counters.
func (m *Manager) Stats() Stats {
	return Stats{
		VehicleStates: m.vehicleStates.Load(),
		Transfers:     m.transfers.Load(),
		ZoneStates:    m.zoneStates.Load(),
		Failed:        m.failed.Load(),
	}
}
