package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id),
	user_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	tokens_used INTEGER,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_id ON conversations(user_id);
CREATE INDEX IF NOT EXISTS idx_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_user_messages ON messages(user_id);
`

// OpenSQLite opens the database file at path, creating its directory if
// needed, and applies the chat schema. With reset set, existing tables are
// dropped first.
func OpenSQLite(path string, reset bool) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Transactions lock at BEGIN; the busy handler never retries a deferred
	// read-to-write upgrade.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := initSQLiteSchema(db, reset); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[database] sqlite initialized at %s", path)
	return db, nil
}

func initSQLiteSchema(db *sql.DB, reset bool) error {
	if reset {
		log.Println("[database] resetting sqlite tables")
		if _, err := db.Exec("DROP TABLE IF EXISTS messages"); err != nil {
			return fmt.Errorf("failed to drop messages: %w", err)
		}
		if _, err := db.Exec("DROP TABLE IF EXISTS conversations"); err != nil {
			return fmt.Errorf("failed to drop conversations: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}
