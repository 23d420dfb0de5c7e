package internal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS throttle_titles (
		chat_id TEXT PRIMARY KEY,
		last_update TEXT NOT NULL,
		last_message_count INTEGER NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS throttle_memory (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_update TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_index (
		path TEXT PRIMARY KEY,
		mod_time INTEGER NOT NULL,
		chat_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created TEXT NOT NULL,
		modified TEXT NOT NULL,
		model TEXT NOT NULL,
		folder TEXT NOT NULL,
		message_count INTEGER NOT NULL
	)`,
}

// StateDB is the sqlite database holding state that outlives a single
// command: throttle bookkeeping and the chat index.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (creating if needed) the state database at path
func OpenStateDB(path string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StorageError{Path: path, Op: "create", Err: err}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s, err := NewStateDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStateDB wraps an open database and creates the schema
func NewStateDB(db *sql.DB) (*StateDB, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("schema migration failed: %w", err)
		}
	}
	return &StateDB{db: db}, nil
}

// Close closes the database
func (s *StateDB) Close() error {
	return s.db.Close()
}

// SaveThrottle merges snap into the persisted throttle state. Several
// commands may run at once, so rows are merged per chat keeping the most
// recent update rather than overwritten. Chats in snap.Removed are dropped
// and the table is trimmed to snap.MaxTitles, least recently used first.
func (s *StateDB) SaveThrottle(snap ThrottleSnapshot) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	// IMMEDIATE takes the write lock before reading, so two savers queue
	// on busy_timeout instead of both reading stale rows.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	existing, err := queryTitleStates(ctx, conn)
	if err != nil {
		return err
	}
	titles := mergeTitleStates(existing, snap)

	if _, err := conn.ExecContext(ctx, "DELETE FROM throttle_titles"); err != nil {
		return fmt.Errorf("clear titles failed: %w", err)
	}
	for i, state := range titles {
		if _, err := conn.ExecContext(ctx,
			"INSERT INTO throttle_titles (chat_id, last_update, last_message_count, position) VALUES (?, ?, ?, ?)",
			state.ChatID, FormatTimestamp(state.LastUpdate), state.LastMessageCount, i); err != nil {
			return fmt.Errorf("insert title state failed: %w", err)
		}
	}

	if !snap.LastMemoryUpdate.IsZero() {
		if _, err := conn.ExecContext(ctx, `INSERT INTO throttle_memory (id, last_update) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET last_update = excluded.last_update
			WHERE excluded.last_update > throttle_memory.last_update`,
			FormatTimestamp(snap.LastMemoryUpdate)); err != nil {
			return fmt.Errorf("save memory state failed: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	committed = true
	return nil
}

// mergeTitleStates combines persisted rows with a snapshot. For a chat in
// both, the later LastUpdate wins and ties go to the snapshot.
func mergeTitleStates(existing []TitleState, snap ThrottleSnapshot) []TitleState {
	merged := make([]TitleState, 0, len(existing)+len(snap.Titles))
	index := make(map[string]int, len(existing))
	for _, state := range existing {
		index[state.ChatID] = len(merged)
		merged = append(merged, state)
	}
	for _, state := range snap.Titles {
		if i, ok := index[state.ChatID]; ok {
			if merged[i].LastUpdate.After(state.LastUpdate) {
				continue
			}
			merged[i].ChatID = ""
		}
		index[state.ChatID] = len(merged)
		merged = append(merged, state)
	}

	removed := make(map[string]bool, len(snap.Removed))
	for _, id := range snap.Removed {
		removed[id] = true
	}
	out := merged[:0]
	for _, state := range merged {
		if state.ChatID != "" && !removed[state.ChatID] {
			out = append(out, state)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdate.Before(out[j].LastUpdate)
	})
	if snap.MaxTitles > 0 && len(out) > snap.MaxTitles {
		out = out[len(out)-snap.MaxTitles:]
	}
	return out
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTitleStates(ctx context.Context, q queryer) ([]TitleState, error) {
	rows, err := q.QueryContext(ctx, "SELECT chat_id, last_update, last_message_count FROM throttle_titles ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var titles []TitleState
	for rows.Next() {
		var state TitleState
		var lastUpdate string
		if err := rows.Scan(&state.ChatID, &lastUpdate, &state.LastMessageCount); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		state.LastUpdate = parseTimestamp(lastUpdate)
		titles = append(titles, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return titles, nil
}

// LoadThrottle reads the persisted throttle state, least recently used first
func (s *StateDB) LoadThrottle() (ThrottleSnapshot, error) {
	var snap ThrottleSnapshot

	titles, err := queryTitleStates(context.Background(), s.db)
	if err != nil {
		return snap, err
	}
	snap.Titles = titles

	var lastMemory string
	err = s.db.QueryRow("SELECT last_update FROM throttle_memory WHERE id = 1").Scan(&lastMemory)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return snap, fmt.Errorf("query memory state failed: %w", err)
	default:
		snap.LastMemoryUpdate = parseTimestamp(lastMemory)
	}
	return snap, nil
}

// LoadThrottleInto restores persisted state into t, logging and ignoring
// failures so a damaged state file only costs an early regeneration.
func (s *StateDB) LoadThrottleInto(t *UpdateThrottle) {
	snap, err := s.LoadThrottle()
	if err != nil {
		LogWarn("Failed to load throttle state: %v", err)
		return
	}
	t.Restore(snap)
	LogDebug("Restored throttle state for %d chats", len(snap.Titles))
}

// ColumnInfo describes one column of a state table
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// TableInfo describes one state table
type TableInfo struct {
	Name    string
	Rows    int
	Columns []ColumnInfo
}

// Tables lists the tables of the state database with their schema and row count
func (s *StateDB) Tables() ([]TableInfo, error) {
	rows, err := s.db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables failed: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		names = append(names, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info := TableInfo{Name: name}
		// names come from sqlite_master, not user input
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&info.Rows); err != nil {
			return nil, fmt.Errorf("count %s failed: %w", name, err)
		}
		if info.Columns, err = s.tableSchema(name); err != nil {
			return nil, err
		}
		tables = append(tables, info)
	}
	return tables, nil
}

func (s *StateDB) tableSchema(table string) ([]ColumnInfo, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("schema %s failed: %w", table, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var cid, notNull, pk int
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk > 0
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
