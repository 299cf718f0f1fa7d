package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cargoloop/simcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.add("DEBUG", msg, kv) }
func (l *testLogger) Info(msg string, kv ...any)  { l.add("INFO", msg, kv) }
func (l *testLogger) Error(msg string, kv ...any) { l.add("ERROR", msg, kv) }

func (l *testLogger) with(prefix string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func transferEvent(seq int) Event {
	return Event{
		Command: CmdZoneTransfer,
		Zone:    "fish-market",
		Vehicle: "truck",
		SimTime: time.Duration(seq) * 500 * time.Millisecond,
		Payload: core.TransferEvent{
			ZoneName:    "fish-market",
			VehicleID:   "truck",
			PassengerID: fmt.Sprintf("p-%d", seq),
			Direction:   core.DirectionBoard,
			Sequence:    seq,
		},
	}
}

func TestDispatch_SyncHandlerGetsPayload(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got core.TransferEvent
	d.Register(CmdZoneTransfer, func(e Event) (any, error) {
		got = e.Payload.(core.TransferEvent)
		return got.Sequence, nil
	})

	result, err := d.Dispatch(transferEvent(2))
	require.NoError(t, err)
	assert.Equal(t, 2, result)
	assert.Equal(t, "p-2", got.PassengerID)
	assert.Equal(t, core.DirectionBoard, got.Direction)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.False(t, d.HasHandler(":UNKNOWN:"))
}

func TestDispatch_StampsTimestampOnce(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got []Event
	d.Register(CmdZoneState, func(e Event) (any, error) {
		got = append(got, e)
		return nil, nil
	})

	before := time.Now()
	fixed := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	_, _ = d.Dispatch(Event{Command: CmdZoneState, SimTime: 2 * time.Second})
	_, _ = d.Dispatch(Event{Command: CmdZoneState, Timestamp: fixed})

	require.Len(t, got, 2)
	assert.False(t, got[0].Timestamp.Before(before))
	assert.Equal(t, 2*time.Second, got[0].SimTime)
	assert.Equal(t, fixed, got[1].Timestamp)
}

func TestBuffered_TransfersArriveInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var seqs []int
	d.Register(CmdZoneTransfer, func(e Event) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, e.Payload.(core.TransferEvent).Sequence)
		return nil, nil
	}, Buffered(10))

	for i := 1; i <= 5; i++ {
		result, err := d.Dispatch(transferEvent(i))
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}
	d.Close()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, seqs)

	_, err := d.Dispatch(transferEvent(6))
	assert.ErrorIs(t, err, ErrClosed)
	d.Close()
}

func TestBuffered_DropsVehicleStatesWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register(CmdVehicleState, func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(2))

	state := func(tick int) Event {
		return Event{Command: CmdVehicleState, Vehicle: "truck", Payload: core.VehicleState{VehicleID: "truck", Segment: tick}}
	}

	_, err := d.Dispatch(state(0))
	require.NoError(t, err)
	<-started

	var dropped int
	for i := 1; i <= 5; i++ {
		if _, err := d.Dispatch(state(i)); err != nil {
			assert.ErrorIs(t, err, ErrQueueFull)
			dropped++
		}
	}
	assert.Equal(t, 3, dropped)

	close(block)
	d.Close()
}

func TestBlocking_KeepsEveryZoneState(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var changes []core.ZoneStateChange
	d.Register(CmdZoneState, func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, e.Payload.(core.ZoneStateChange))
		return nil, nil
	}, Buffered(1), Blocking())

	states := []string{"idle", "vehicle_nearby", "transferring", "vehicle_nearby", "transferring", "retired"}
	for i := 1; i < len(states); i++ {
		_, err := d.Dispatch(Event{
			Command: CmdZoneState,
			Zone:    "ferry-pier",
			Payload: core.ZoneStateChange{ZoneName: "ferry-pier", From: states[i-1], To: states[i]},
		})
		require.NoError(t, err)
	}
	d.Close()

	require.Len(t, changes, len(states)-1)
	for i, c := range changes {
		assert.Equal(t, states[i], c.From)
		assert.Equal(t, states[i+1], c.To)
	}
}

func TestBlocking_WaitsForRoom(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(CmdZoneState, func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	_, _ = d.Dispatch(Event{Command: CmdZoneState})
	_, _ = d.Dispatch(Event{Command: CmdZoneState})

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(Event{Command: CmdZoneState})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
	d.Close()
}

func TestLogged_RecordsZoneAndVehicle(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(CmdVehicleEnter, func(e Event) (any, error) {
		return nil, nil
	}, Logged())

	_, err := d.Dispatch(Event{Command: CmdVehicleEnter, Zone: "warehouse", Vehicle: "truck"})
	require.NoError(t, err)

	debug := logger.with("DEBUG")
	require.Len(t, debug, 2)
	assert.Contains(t, debug[0], "warehouse")
	assert.Contains(t, debug[0], "truck")
	assert.Empty(t, logger.with("ERROR"))
}

func TestLogged_HandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	errNoZone := errors.New("zone not found")
	d.Register(CmdVehicleExit, func(e Event) (any, error) {
		return nil, errNoZone
	}, Logged())

	_, err := d.Dispatch(Event{Command: CmdVehicleExit, Zone: "nowhere"})
	assert.ErrorIs(t, err, errNoZone)

	errs := logger.with("ERROR")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "zone not found")
}

func TestBufferedLogged_FailuresReachLogger(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(CmdZoneTransfer, func(e Event) (any, error) {
		if e.Payload.(core.TransferEvent).Sequence == 2 {
			return nil, errors.New("insert failed")
		}
		return nil, nil
	}, Buffered(10), Logged())

	for i := 1; i <= 3; i++ {
		_, err := d.Dispatch(transferEvent(i))
		require.NoError(t, err)
	}
	d.Close()

	assert.True(t, d.HasHandler(CmdZoneTransfer))
	errs := logger.with("ERROR")
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "insert failed")
}
