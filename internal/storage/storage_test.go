// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/storage"
	"github.com/cargoloop/simcore/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, nil, zerolog.Nop())
	require.NoError(t, err)

	_, ok := b.(*memory.Backend)
	assert.True(t, ok)
	_, ok = b.(storage.TransferReader)
	assert.True(t, ok)
	_, ok = b.(storage.Exporter)
	assert.True(t, ok)
}

func TestNewBackend_SQLite(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{},
	}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	_, ok := b.(storage.TransferReader)
	assert.True(t, ok)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "tape"}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}
