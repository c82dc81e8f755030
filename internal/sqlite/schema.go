package sqlite

// DatabaseFile is the SQLite file created in DataDir.
const DatabaseFile = "mediums.db"

// Schema DDL. The database is the only copy of medium content, so tables
// are created when missing and never dropped.
const (
	createMedia = `CREATE TABLE IF NOT EXISTS media (
    medium_id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    base INTEGER NOT NULL,
    size INTEGER NOT NULL,
    word_size INTEGER NOT NULL,
    erase_size INTEGER NOT NULL,
    erase_value INTEGER NOT NULL,
    require_erase INTEGER NOT NULL,
    created_at TEXT NOT NULL
);`

	// One row per erase unit that has ever been erased or written. data
	// holds the unit's bytes and state one byte per word (see wordState).
	createSectors = `CREATE TABLE IF NOT EXISTS sectors (
    medium_id TEXT NOT NULL,
    sector INTEGER NOT NULL,
    data BLOB NOT NULL,
    state BLOB NOT NULL,
    erase_count INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (medium_id, sector),
    FOREIGN KEY (medium_id) REFERENCES media(medium_id)
);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createMedia,
	createSectors,
}

// Per-word states stored in sectors.state.
const (
	wordUnknown byte = iota
	wordErased
	wordWritten
)
