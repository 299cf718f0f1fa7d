// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are the in-memory
// connection and the dump loop.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/database"
	gormstorage "github.com/cargoloop/simcore/internal/storage/gorm"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	mgr      *database.Manager
	log      *slog.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New opens a private in-memory database for the backend.
func New(cfg config.SQLiteConfig, mgr *database.Manager, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := mgr.GetSqliteDB(database.MemoryDSN("cargoloop-" + uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:       db,
		cfg:      cfg,
		mgr:      mgr,
		log:      logger.With("component", "sqlite-storage"),
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, starts the embedded GORM backend and the dump goroutine.
func (b *Backend) Init() error {
	if err := b.mgr.Setup(b.db); err != nil {
		return err
	}
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, flushes the GORM backend and writes a
// final dump. Later calls return the first result.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if err := b.Backend.Close(); err != nil {
			b.closeErr = err
			return
		}
		if b.cfg.DumpPath != "" {
			b.closeErr = b.Dump()
		}
	})
	return b.closeErr
}

// Dump writes a point-in-time copy of the database to the dump path.
func (b *Backend) Dump() error {
	return b.mgr.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// ExportedFilePath is the dump file, empty when dumps are disabled.
func (b *Backend) ExportedFilePath() string {
	return b.cfg.DumpPath
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Backend.Flush()
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
