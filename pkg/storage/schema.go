// Package storage is the durable persisted schema (spec §6 "Persisted
// schema (conceptual)"): boards, board_objects, frames, board_savepoints,
// board_members, and board access codes, backed by database/sql over
// mattn/go-sqlite3.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the raw *sql.DB with the schema's prepared shape.
type DB struct {
	*sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_user_id TEXT NOT NULL,
	is_public INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	preview_snapshot BLOB,
	revision INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS board_objects (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	width REAL,
	height REAL,
	rotation_deg REAL NOT NULL DEFAULT 0,
	z_index INTEGER NOT NULL DEFAULT 0,
	props TEXT NOT NULL DEFAULT '{}',
	created_by TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	group_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_board_objects_board ON board_objects(board_id);

CREATE TABLE IF NOT EXISTS frames (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	parent_id TEXT,
	syscall TEXT NOT NULL,
	status TEXT NOT NULL,
	board_id TEXT,
	from_client TEXT,
	data TEXT NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_board ON frames(board_id);

CREATE TABLE IF NOT EXISTS board_savepoints (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	ts INTEGER NOT NULL,
	created_by TEXT,
	is_auto INTEGER NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	label TEXT,
	snapshot TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_savepoints_board ON board_savepoints(board_id, ts DESC);

CREATE TABLE IF NOT EXISTS board_members (
	board_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY (board_id, user_id)
);

CREATE TABLE IF NOT EXISTS board_access_codes (
	code TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	from_user TEXT NOT NULL,
	message TEXT NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_board ON chat_messages(board_id, ts);

CREATE TABLE IF NOT EXISTS ai_turns (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_turns_scope ON ai_turns(board_id, user_id, ts);
`

// Open opens (creating if absent) the sqlite database at dataSourceName and
// applies the schema idempotently.
func Open(dataSourceName string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under the worker's
	// batch-upsert cycle; readers still served from the same handle.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{sqlDB}, nil
}
