// internal/storage/factory.go
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/database"
	"github.com/cargoloop/simcore/internal/storage/memory"
	"github.com/cargoloop/simcore/internal/storage/postgres"
	sqlitestorage "github.com/cargoloop/simcore/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// ErrUnknownBackend is returned for an unsupported storage type.
var ErrUnknownBackend = errors.New("unknown storage type")

// NewBackend creates a storage backend based on configuration. SQL backends
// log their connection handling through dbLog.
func NewBackend(cfg config.StorageConfig, logger *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, database.NewManager(dbLog), logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, database.NewManager(dbLog), logger)
	case "memory", "":
		return memory.New(cfg.Memory, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
}
