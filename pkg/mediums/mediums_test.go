package mediums

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mediums/pkg/mediumtest"
	"github.com/mesh-intelligence/mediums/pkg/sqlite"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func config(backend string) types.Config {
	return types.Config{
		Backend:      backend,
		Size:         1024,
		WordSize:     4,
		EraseSize:    256,
		EraseValue:   0xFF,
		RequireErase: true,
	}
}

func TestOpen_Backends(t *testing.T) {
	tests := []struct {
		backend   string
		wordSize  uint64
		eraseSize uint64
		caps      types.Capability
	}{
		{types.BackendRAM, 1, 1, types.CapRead | types.CapWrite | types.CapErase | types.CapUnaligned},
		{types.BackendFlash, 4, 256, types.CapRead | types.CapWrite | types.CapErase | types.CapEraseBeforeWrite},
		{types.BackendSQLite, 4, 256, types.CapRead | types.CapWrite | types.CapErase | types.CapEraseBeforeWrite},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config(tt.backend)
			cfg.DataDir = t.TempDir()

			m, closeFn, err := Open(cfg, discard)
			require.NoError(t, err)
			defer closeFn()

			info := types.Describe(m)
			assert.Equal(t, uint64(1024), info.Size)
			assert.Equal(t, tt.wordSize, info.WordSize)
			assert.Equal(t, tt.eraseSize, info.EraseSize)
			assert.Equal(t, tt.caps, info.Capabilities)
		})
	}
}

func TestOpen_Conformance(t *testing.T) {
	for _, backend := range []string{types.BackendRAM, types.BackendFlash, types.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			mediumtest.Run(t, func(t *testing.T) types.ReadWriteEraser {
				cfg := config(backend)
				cfg.DataDir = t.TempDir()
				m, closeFn, err := Open(cfg, discard)
				require.NoError(t, err)
				t.Cleanup(func() { closeFn() })
				return m
			})
		})
	}
}

func TestOpen_FlashStartsErased(t *testing.T) {
	m, _, err := Open(config(types.BackendFlash), discard)
	require.NoError(t, err)
	assert.NoError(t, m.Write(0, []byte{1, 2, 3, 4}))
}

func TestOpen_SQLiteCreatesDatabase(t *testing.T) {
	cfg := config(types.BackendSQLite)
	cfg.DataDir = filepath.Join(t.TempDir(), "nested")

	_, closeFn, err := Open(cfg, discard)
	require.NoError(t, err)
	require.NoError(t, closeFn())
	assert.FileExists(t, filepath.Join(cfg.DataDir, sqlite.DatabaseFile))
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, _, err := Open(types.Config{}, discard)
	assert.ErrorIs(t, err, types.ErrBackendEmpty)

	cfg := config("tape")
	_, _, err = Open(cfg, discard)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	cfg = config(types.BackendFlash)
	cfg.EraseSize = 0
	cfg.RequireErase = false
	_, _, err = Open(cfg, discard)
	assert.ErrorIs(t, err, types.ErrEraseSizeInvalid)

	for _, backend := range []string{types.BackendRAM, types.BackendFlash} {
		cfg = config(backend)
		cfg.Size = 1 << 62
		_, _, err = Open(cfg, discard)
		assert.ErrorIs(t, err, types.ErrSizeInvalid, backend)
	}
}
