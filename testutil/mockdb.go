package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database for testing.
// The pool is limited to one connection so every query sees the same database.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertConversationRow inserts a bare conversation row with the given timestamps (unix ms)
func InsertConversationRow(t *testing.T, db *sql.DB, id string, createdAt, updatedAt int64) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, createdAt, updatedAt)
	if err != nil {
		t.Fatalf("Failed to insert conversation: %v", err)
	}
}

// InsertMessageRow inserts one message row
func InsertMessageRow(t *testing.T, db *sql.DB, convID string, position int, role, content string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO messages (conversation_id, position, role, content) VALUES (?, ?, ?, ?)",
		convID, position, role, content)
	if err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
