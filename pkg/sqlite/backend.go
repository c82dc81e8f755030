// Package sqlite provides the public API for the SQLite medium backend.
// This package exposes the factory function for creating SQLite media
// while keeping implementation details internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/mediums/internal/sqlite"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

// DatabaseFile is the file the backend creates in Config.DataDir.
const DatabaseFile = sqlite.DatabaseFile

// Medium is a persistent medium with an attach lifecycle.
type Medium interface {
	types.ReadWriteEraser
	types.EraseBeforeWrite
	types.Attachable

	// Wear returns the erase count of every erase unit.
	Wear() ([]uint64, error)
}

// NewBackend creates a new SQLite medium. It logs through logger, or
// slog.Default when logger is nil. The medium is not attached; call Attach
// with a Config to open it.
//
// Example:
//
//	m := sqlite.NewBackend(nil)
//	err := m.Attach(types.Config{
//	    Backend:   types.BackendSQLite,
//	    DataDir:   ".mediums",
//	    Size:      1 << 20,
//	    WordSize:  4,
//	    EraseSize: 4096,
//	})
//	defer m.Detach()
func NewBackend(logger *slog.Logger) Medium {
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
