package types

import "errors"

// Attachable is a medium backed by external storage that must be opened
// before use. Callers attach with a Config, use the medium, and detach when
// done.
type Attachable interface {
	// Attach opens the storage described by config, creating DataDir and
	// the medium's records when missing. Returns ErrAlreadyAttached if
	// called while already attached, and ErrGeometryMismatch when the
	// stored medium was created with a different geometry.
	Attach(config Config) error

	// Detach releases the storage. Idempotent: multiple calls succeed.
	// After Detach, transfers fail with a MediumFault wrapping
	// ErrDetached.
	Detach() error

	// ID returns the stable identity of the attached medium, or "" when
	// detached.
	ID() string
}

// Lifecycle errors.
var (
	ErrAlreadyAttached  = errors.New("medium is already attached")
	ErrGeometryMismatch = errors.New("stored medium has a different geometry")
)
