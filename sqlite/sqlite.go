// Package sqlite provides durable implementations of the core store
// interfaces (sessions, memories, interrupts) backed by a single SQLite
// database file. The database is opened in WAL mode with foreign keys on and
// a busy timeout; SQLite supports a single writer, so the connection pool is
// pinned to one open connection.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store implements core.SessionStore, core.MemoryStore and
// core.InterruptStore over one SQLite database. All writes that touch more
// than one row run inside a transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and initializes the
// schema. The special path ":memory:" yields an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for migrations and diagnostics.
func (s *Store) DB() *sql.DB { return s.db }

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	agent_name TEXT NOT NULL,
	state_data TEXT NOT NULL DEFAULT '{}',
	memory_id  TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent_name, updated_at);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	tool_name  TEXT,
	timestamp  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);

CREATE TABLE IF NOT EXISTS memories (
	id             TEXT PRIMARY KEY,
	agent_name     TEXT NOT NULL,
	user_id        TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	key_learnings  TEXT NOT NULL DEFAULT '[]',
	memory_data    TEXT NOT NULL DEFAULT '{}',
	total_sessions INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL,
	UNIQUE(agent_name, user_id)
);

CREATE TABLE IF NOT EXISTS interrupts (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	agent_name       TEXT NOT NULL,
	type             TEXT NOT NULL,
	reason           TEXT NOT NULL,
	data             TEXT NOT NULL DEFAULT '{}',
	status           TEXT NOT NULL,
	expires_at       TIMESTAMP NOT NULL,
	resolved_at      TIMESTAMP,
	resolved_by      TEXT,
	modifications    TEXT,
	rejection_reason TEXT,
	user_response    TEXT,
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interrupts_status ON interrupts(status, expires_at);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode json column: %w", err)
	}
	return string(data), nil
}

func unmarshalMap(raw string) (map[string]any, error) {
	out := map[string]any{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode json column: %w", err)
	}
	return out, nil
}
