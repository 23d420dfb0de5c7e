package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database for testing.
// The pool is pinned to one connection so every query sees the same database.
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

// InsertTitleState inserts a throttle_titles row directly
func InsertTitleState(t *testing.T, db *sql.DB, chatID, lastUpdate string, messageCount, position int) {
	t.Helper()
	insertSQL := "INSERT INTO throttle_titles (chat_id, last_update, last_message_count, position) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, chatID, lastUpdate, messageCount, position); err != nil {
		t.Fatalf("Failed to insert title state: %v", err)
	}
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}
