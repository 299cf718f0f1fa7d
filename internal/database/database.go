// Package database opens the GORM connections used by the SQL storage
// backends and prepares their schema.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN names a shared-cache in-memory SQLite database. Connections
// opened with the same name see the same data.
func MemoryDSN(name string) string {
	return "file:" + name + "?mode=memory&cache=shared"
}

// Manager opens connections and logs through zerolog.
type Manager struct {
	Logger zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// GetPostgresDB connects to Postgres and checks the connection.
func (m *Manager) GetPostgresDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	m.Logger.Debug().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	m.Logger.Info().Msg("Connected to database")
	return db, nil
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses the default in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN("cargoloop")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if path == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	return db, nil
}

// Setup migrates every table in model.DatabaseModels.
func (m *Manager) Setup(db *gorm.DB) error {
	m.Logger.Info().Str("dialect", db.Dialector.Name()).Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file,
// replacing any previous dump.
func (m *Manager) DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	// remove existing file if it exists
	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	start := time.Now()
	if err := db.Exec("VACUUM INTO ?", "file:"+sqliteFilePath).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", sqliteFilePath).Msg("Dumped memory DB to disk")
	return nil
}
