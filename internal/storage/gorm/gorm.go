// Package gormstorage implements the storage.Backend interface on top of any
// GORM connection, with internal queues and a background writer goroutine.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cargoloop/simcore/internal/model"
	"github.com/cargoloop/simcore/internal/model/convert"
	"github.com/cargoloop/simcore/internal/queue"
	"github.com/cargoloop/simcore/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// queueLimit bounds each write queue while the database is unreachable.
const queueLimit = 100_000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	VehicleStates    *queue.Queue[model.VehicleState]
	TransferEvents   *queue.Queue[model.TransferEvent]
	ZoneStateChanges *queue.Queue[model.ZoneStateChange]
}

func newQueues() *queues {
	return &queues{
		VehicleStates:    queue.New[model.VehicleState](queueLimit),
		TransferEvents:   queue.New[model.TransferEvent](queueLimit),
		ZoneStateChanges: queue.New[model.ZoneStateChange](queueLimit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	log       *slog.Logger
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a new GORM storage backend. The schema must already exist.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		log:    deps.Logger.With("component", "gorm-storage"),
		queues: newQueues(),
	}
}

// DB exposes the connection for wrappers that need it.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writerLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.wg.Wait()
		}
		if b.deps.DB != nil {
			b.Flush()
		}
	})
	return nil
}

// StartSession inserts the session row synchronously so its ID can stamp
// every queued row.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.log.Info("Session started", "sessionId", row.ID, "scenario", row.ScenarioName)
	return nil
}

// EndSession flushes the queues and records the end time.
func (b *Backend) EndSession() error {
	b.Flush()
	id := uint(b.sessionID.Load())
	if id == 0 {
		return nil
	}
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to close session %d: %w", id, err)
	}
	return nil
}

// SessionID returns the ID of the running session, zero before StartSession.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// RecordVehicleState converts and queues a vehicle state.
func (b *Backend) RecordVehicleState(v *core.VehicleState) error {
	b.queues.VehicleStates.Push(convert.CoreToVehicleState(*v))
	return nil
}

// RecordTransfer converts and queues a transfer event.
func (b *Backend) RecordTransfer(e *core.TransferEvent) error {
	b.queues.TransferEvents.Push(convert.CoreToTransferEvent(*e))
	return nil
}

// RecordZoneState converts and queues a zone state change.
func (b *Backend) RecordZoneState(e *core.ZoneStateChange) error {
	b.queues.ZoneStateChanges.Push(convert.CoreToZoneStateChange(*e))
	return nil
}

// Transfers returns up to limit of the session's most recent transfers in
// chronological order. Rows still queued are not included.
func (b *Backend) Transfers(limit int) ([]core.TransferEvent, error) {
	var rows []model.TransferEvent
	q := b.deps.DB.Where("session_id = ?", b.sessionID.Load()).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	out := make([]core.TransferEvent, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = convert.TransferEventToCore(row)
	}
	return out, nil
}

// Flush writes every queue once.
func (b *Backend) Flush() {
	sessionID := uint(b.sessionID.Load())

	writeQueue(b.deps.DB, b.queues.VehicleStates, "vehicle states", b.log, func(items []model.VehicleState) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.TransferEvents, "transfer events", b.log, func(items []model.TransferEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.ZoneStateChanges, "zone state changes", b.log, func(items []model.ZoneStateChange) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}
	if prepare != nil {
		prepare(items)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		log.Error("Error writing batch", "table", name, "count", len(items), "error", err)
		q.Requeue(items)
		return
	}
	log.Debug("Wrote batch", "table", name, "count", len(items))
}

func (b *Backend) writerLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// rows only make sense once they can reference a session
			if b.sessionID.Load() == 0 {
				continue
			}
			b.Flush()
		}
	}
}
