// Package sqlite implements a persistent medium stored in a SQLite
// database. Each named medium is a row in the media table; its content is
// kept per erase unit in the sectors table together with a per-word
// erase state, so erase-before-write rules survive a restart.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// Backend is a SQLite-backed medium. It is safe for concurrent use: reads
// share a read lock and writes and erases are serialized.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	id       string
	layout   layout
	logger   *slog.Logger
}

var (
	_ types.ReadWriteEraser  = (*Backend)(nil)
	_ types.EraseBeforeWrite = (*Backend)(nil)
	_ types.Attachable       = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for lifecycle and fault messages.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to open a medium.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the database in config.DataDir and the medium named
// config.Name, creating both when missing. A medium that already exists
// must have been created with the same geometry.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}
	if config.EraseSize == 0 {
		return fmt.Errorf("%w: sqlite media need an erase size", types.ErrEraseSizeInvalid)
	}
	if config.Base%config.EraseSize != 0 {
		return fmt.Errorf("%w: base %#x is not aligned to erase size %d", types.ErrEraseSizeInvalid, config.Base, config.EraseSize)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps transactions and the file lock in one place.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	id, created, err := openMedium(db, config)
	if err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.id = id
	b.config = config
	b.layout = newLayout(config)
	b.attached = true

	b.logger.Info("medium attached",
		"medium", id,
		"name", config.MediumName(),
		"path", dbPath,
		"created", created,
	)
	return nil
}

// Detach closes the database. After Detach, all transfers fail with a
// MediumFault wrapping ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.logger.Info("medium detached", "medium", b.id)
	b.attached = false
	b.id = ""
	b.layout = layout{}
	return nil
}

// ID returns the UUID of the attached medium, or "" when detached.
func (b *Backend) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// openMedium returns the ID of the medium named in config, inserting a new
// row when none exists. created reports whether the row was inserted.
func openMedium(db *sql.DB, config types.Config) (id string, created bool, err error) {
	var stored struct {
		base, size, wordSize, eraseSize int64
		eraseValue                      int64
		requireErase                    bool
	}
	err = db.QueryRow(
		`SELECT medium_id, base, size, word_size, erase_size, erase_value, require_erase
		 FROM media WHERE name = ?`, config.MediumName(),
	).Scan(&id, &stored.base, &stored.size, &stored.wordSize, &stored.eraseSize, &stored.eraseValue, &stored.requireErase)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = generateUUID()
		_, err = db.Exec(
			`INSERT INTO media (medium_id, name, base, size, word_size, erase_size, erase_value, require_erase, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, config.MediumName(),
			int64(config.Base), int64(config.Size), int64(config.WordSize), int64(config.EraseSize),
			int64(config.EraseValue), config.RequireErase,
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return "", false, fmt.Errorf("insert medium: %w", err)
		}
		return id, true, nil
	case err != nil:
		return "", false, fmt.Errorf("query medium: %w", err)
	}

	if uint64(stored.base) != config.Base ||
		uint64(stored.size) != config.Size ||
		uint64(stored.wordSize) != config.WordSize ||
		uint64(stored.eraseSize) != config.EraseSize ||
		byte(stored.eraseValue) != config.EraseValue ||
		stored.requireErase != config.RequireErase {
		return "", false, fmt.Errorf("%w: medium %q has base %#x size %d word %d erase %d/%#02x require_erase=%t",
			types.ErrGeometryMismatch, config.MediumName(),
			stored.base, stored.size, stored.wordSize, stored.eraseSize, stored.eraseValue, stored.requireErase)
	}
	return id, false, nil
}

// generateUUID generates a new UUID v7 for medium IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
