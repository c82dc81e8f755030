// Package mediums builds media from configuration. It is the entry point
// for programs that select a backend at run time.
package mediums

import (
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/mediums/pkg/flash"
	"github.com/mesh-intelligence/mediums/pkg/ram"
	"github.com/mesh-intelligence/mediums/pkg/sqlite"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

// Version is the release of this module.
const Version = "0.1.0"

// CloseFunc releases a medium returned by Open.
type CloseFunc func() error

func noClose() error { return nil }

// Open builds the medium described by cfg.
//
// The ram backend ignores the geometry fields: buffers always have one-byte
// words, one-byte erase units and erase value 0. The flash backend is an
// in-memory simulation whose words start erased. The sqlite backend is
// attached to cfg.DataDir and must be released with the returned CloseFunc.
func Open(cfg types.Config, logger *slog.Logger) (types.ReadWriteEraser, CloseFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case types.BackendRAM:
		if cfg.Size > ram.MaxSize {
			return nil, nil, fmt.Errorf("%w: size %d exceeds %d", types.ErrSizeInvalid, cfg.Size, uint64(ram.MaxSize))
		}
		return ram.NewAt(types.Address(cfg.Base), make([]byte, cfg.Size)), noClose, nil

	case types.BackendFlash:
		if cfg.EraseSize == 0 {
			return nil, nil, fmt.Errorf("%w: flash needs an erase size", types.ErrEraseSizeInvalid)
		}
		f, err := flash.New(flash.Config{
			Base:       types.Address(cfg.Base),
			Size:       cfg.Size,
			WordSize:   cfg.WordSize,
			EraseSize:  cfg.EraseSize,
			EraseValue: cfg.EraseValue,
			PreErased:  true,
		})
		if err != nil {
			return nil, nil, err
		}
		return f, noClose, nil

	case types.BackendSQLite:
		m := sqlite.NewBackend(logger)
		if err := m.Attach(cfg); err != nil {
			return nil, nil, err
		}
		return m, m.Detach, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
}
