// Package store is the station's sqlite index database: clip metadata and
// calibration run history, with schema-versioned migrations and a
// read-only SQL debug console. Grounded on internal/db/db.go's
// embed+migrate+pragma wiring. NewDB probes for the clips table: a database
// without it is created from schema.sql and baselined at the latest
// migration version; an existing one has its outstanding migrations
// applied (see DESIGN.md).
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode switches migrations to the local filesystem for hot-reloading
// during development; production builds use the embedded filesystem.
var DevMode = false

func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS("internal/asteria/store/migrations"), nil
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("store: sub-filesystem for embedded migrations: %w", err)
	}
	return sub, nil
}

// DB wraps a sqlite connection to the station index database.
type DB struct {
	*sql.DB
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("store: exec %q: %w", pragma, err)
		}
	}
	return nil
}

// NewDB opens path, creating and migrating the schema if the database is
// new, and applying any outstanding migrations otherwise.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db := &DB{sqlDB}

	if err := applyPragmas(sqlDB); err != nil {
		return nil, err
	}

	var hasClips bool
	err = sqlDB.QueryRow(`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name='clips'`).Scan(&hasClips)
	if err != nil {
		return nil, fmt.Errorf("store: probe schema: %w", err)
	}

	if !hasClips {
		if _, err := sqlDB.Exec(schemaSQL); err != nil {
			return nil, fmt.Errorf("store: initialize schema: %w", err)
		}
		mfs, err := getMigrationsFS()
		if err != nil {
			return nil, err
		}
		if err := db.baselineAtLatest(mfs); err != nil {
			return nil, fmt.Errorf("store: baseline fresh database: %w", err)
		}
		return db, nil
	}

	mfs, err := getMigrationsFS()
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(mfs); err != nil {
		return nil, fmt.Errorf("store: apply migrations: %w", err)
	}
	return db, nil
}

// OpenDB opens path without running schema initialization or migrations,
// for tooling that manages schema independently.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := applyPragmas(sqlDB); err != nil {
		return nil, err
	}
	return &DB{sqlDB}, nil
}
