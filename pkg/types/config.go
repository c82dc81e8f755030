package types

import (
	"errors"
	"fmt"
)

// Config holds backend selection and geometry for building a medium.
type Config struct {
	Backend      string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir      string `json:"data_dir,omitempty" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Base         uint64 `json:"base,omitempty" yaml:"base,omitempty" mapstructure:"base"`
	Size         uint64 `json:"size" yaml:"size" mapstructure:"size"`
	WordSize     uint64 `json:"word_size" yaml:"word_size" mapstructure:"word_size"`
	EraseSize    uint64 `json:"erase_size" yaml:"erase_size" mapstructure:"erase_size"`
	EraseValue   byte   `json:"erase_value" yaml:"erase_value" mapstructure:"erase_value"`
	RequireErase bool   `json:"require_erase" yaml:"require_erase" mapstructure:"require_erase"`
}

// Supported backend names.
const (
	BackendRAM    = "ram"
	BackendFlash  = "flash"
	BackendSQLite = "sqlite"
)

// DefaultMediumName names the medium when Config.Name is empty.
const DefaultMediumName = "default"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendRAM:    true,
	BackendFlash:  true,
	BackendSQLite: true,
}

// Geometry returns the geometry described by the config.
func (c Config) Geometry() Geometry {
	return Geometry{
		WordSize:   c.WordSize,
		EraseSize:  c.EraseSize,
		EraseValue: c.EraseValue,
	}
}

// MediumName returns Name, or DefaultMediumName when Name is empty.
func (c Config) MediumName() string {
	if c.Name == "" {
		return DefaultMediumName
	}
	return c.Name
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Backend)
	}
	g := c.Geometry()
	if err := g.Validate(); err != nil {
		return err
	}
	if err := g.ValidateSize(c.Size); err != nil {
		return err
	}
	if _, err := NewRegion(Address(c.Base), c.Size); err != nil {
		return fmt.Errorf("%w: base %#x size %d", ErrSizeInvalid, c.Base, c.Size)
	}
	if c.RequireErase && c.EraseSize == 0 {
		return fmt.Errorf("%w: erase-before-write needs an erase size", ErrEraseSizeInvalid)
	}
	return nil
}
