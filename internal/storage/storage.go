// internal/storage/storage.go
package storage

import "github.com/cargoloop/simcore/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (assigns ID to the passed pointer)
	StartSession(s *core.Session) error
	EndSession() error

	// State recording
	RecordVehicleState(v *core.VehicleState) error

	// Event recording
	RecordTransfer(e *core.TransferEvent) error
	RecordZoneState(e *core.ZoneStateChange) error
}

// TransferReader is an optional interface for backends that can list the
// transfers recorded in the current session, newest last.
type TransferReader interface {
	Transfers(limit int) ([]core.TransferEvent, error)
}

// Exporter is an optional interface for backends that write a file when
// the session ends.
type Exporter interface {
	ExportedFilePath() string
}
