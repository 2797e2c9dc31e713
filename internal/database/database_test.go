package database

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name     string
		expected int
	}{
		{"001_create_conversations.sql", 1},
		{"012_add_index.sql", 12},
		{"abc_not_a_migration.sql", 0},
		{"x.sql", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := migrationVersion(tc.name); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestMigrationsAreBundled(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	if err != nil {
		t.Fatalf("failed to read bundled migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one bundled migration")
	}
	if entries[0].Name() != "001_create_conversations.sql" {
		t.Fatalf("unexpected first migration %q", entries[0].Name())
	}
}

func TestOpenSQLite_ResetDropsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	db, err := OpenSQLite(path, false)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if _, err := db.Exec(
		"INSERT INTO conversations (conversation_id, user_id, created_at, updated_at) VALUES ('c1', 'u1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
	); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(path, false)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count)
	db.Close()
	if count != 1 {
		t.Fatalf("expected row to survive reopen without reset, got %d", count)
	}

	db, err = OpenSQLite(path, true)
	if err != nil {
		t.Fatalf("reopen with reset failed: %v", err)
	}
	defer db.Close()
	db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count)
	if count != 0 {
		t.Fatalf("expected reset to drop rows, got %d", count)
	}
}

func TestNewRedisClients_Errors(t *testing.T) {
	if _, err := NewRedisClients("not a url"); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected parse error, got %v", err)
	}

	_, err := NewRedisClients("redis://127.0.0.1:1/0")
	if err == nil || !strings.Contains(err.Error(), "(events)") {
		t.Fatalf("expected events ping error, got %v", err)
	}
}
