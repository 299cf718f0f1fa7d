package worker

import (
	"fmt"

	"github.com/cargoloop/simcore/internal/dispatcher"
	"github.com/cargoloop/simcore/pkg/core"
)

// RegisterHandlers registers the recorder handlers with the dispatcher.
// All of them are buffered so storage latency never stalls a world step.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(dispatcher.CmdVehicleState, m.handleVehicleState, dispatcher.Buffered(10000), dispatcher.Logged())
	d.Register(dispatcher.CmdZoneTransfer, m.handleTransfer, dispatcher.Buffered(1000), dispatcher.Logged())
	// state changes are rare and must not be lost
	d.Register(dispatcher.CmdZoneState, m.handleZoneState, dispatcher.Buffered(100), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handleVehicleState(e dispatcher.Event) (any, error) {
	state, ok := e.Payload.(core.VehicleState)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, e.Payload, e.Command)
	}

	if err := m.deps.Backend.RecordVehicleState(&state); err != nil {
		m.failed.Add(1)
		return nil, fmt.Errorf("failed to record vehicle state: %w", err)
	}
	m.vehicleStates.Add(1)
	return nil, nil
}

func (m *Manager) handleTransfer(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.TransferEvent)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, e.Payload, e.Command)
	}

	if m.deps.Metrics != nil {
		if err := m.deps.Metrics.WriteTransfer(ev); err != nil {
			m.deps.Logger.Warn("Failed to write transfer metric", "zone", ev.ZoneName, "error", err)
		}
	}

	if err := m.deps.Backend.RecordTransfer(&ev); err != nil {
		m.failed.Add(1)
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}
	m.transfers.Add(1)
	return nil, nil
}

func (m *Manager) handleZoneState(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.ZoneStateChange)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, e.Payload, e.Command)
	}

	if m.deps.Metrics != nil {
		if err := m.deps.Metrics.WriteZoneState(ev); err != nil {
			m.deps.Logger.Warn("Failed to write zone state metric", "zone", ev.ZoneName, "error", err)
		}
	}

	if err := m.deps.Backend.RecordZoneState(&ev); err != nil {
		m.failed.Add(1)
		return nil, fmt.Errorf("failed to record zone state: %w", err)
	}
	m.zoneStates.Add(1)
	return nil, nil
}
