// Package database persists loops and documents in SQLite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Schema creates every table the repository uses.
const Schema = `
CREATE TABLE IF NOT EXISTS loops (
	id TEXT PRIMARY KEY,
	loop_type TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	status TEXT NOT NULL,
	state_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loops_created ON loops(created_at, id);

CREATE TABLE IF NOT EXISTS loop_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	loop_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	status TEXT NOT NULL,
	score INTEGER,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loop_events_loop ON loop_events(loop_id, id);

CREATE TABLE IF NOT EXISTS documents (
	kind TEXT NOT NULL,
	container TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	specs_json TEXT,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (kind, container, name)
);
`

// Open opens a SQLite database with WAL and a busy timeout. A single
// connection is kept so in-memory databases behave like files.
func Open(path string) (*sql.DB, error) {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"foreign_keys(ON)",
		"busy_timeout(5000)",
		"cache_size(-64000)",
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	connString := path + sep + "_pragma=" + strings.Join(pragmas, "&_pragma=")

	db, err := sql.Open("sqlite", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	return db, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
