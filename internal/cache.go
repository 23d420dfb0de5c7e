package internal

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
)

// ChatIndex caches parsed chat metadata in the state database so listing
// does not re-read every file. A row is valid while the file's modification
// time matches the one recorded with it.
type ChatIndex struct {
	db    *sql.DB
	store *ChatStore
}

// IndexEntry is one cached chat
type IndexEntry struct {
	Path         string
	Metadata     ChatMetadata
	MessageCount int
}

// RefreshStats reports what a refresh did
type RefreshStats struct {
	Parsed  int
	Reused  int
	Removed int
	Skipped int
}

// NewChatIndex creates an index over store backed by the state database
func NewChatIndex(state *StateDB, store *ChatStore) *ChatIndex {
	return &ChatIndex{db: state.db, store: store}
}

// Refresh brings the index in line with the chat files selected by opts.
// Only files whose modification time changed are parsed again; rows for
// files that no longer exist anywhere are removed. Corrupt files are logged and
// skipped.
func (ci *ChatIndex) Refresh(opts ListOptions) (RefreshStats, error) {
	var stats RefreshStats

	paths, err := ci.store.ChatFiles(opts)
	if err != nil {
		return stats, err
	}
	cached, err := ci.modTimes()
	if err != nil {
		return stats, err
	}

	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		seen[path] = true
		info, err := os.Stat(path)
		if err != nil {
			LogWarn("Skipping chat file %s: %v", path, err)
			stats.Skipped++
			continue
		}
		modTime := info.ModTime().UnixNano()
		if prev, ok := cached[path]; ok && prev == modTime {
			stats.Reused++
			continue
		}

		rec, err := ci.store.ReadFile(path)
		if err != nil {
			LogWarn("Skipping chat file %s: %v", path, err)
			if _, err := ci.db.Exec("DELETE FROM chat_index WHERE path = ?", path); err != nil {
				return stats, fmt.Errorf("delete index row failed: %w", err)
			}
			stats.Skipped++
			continue
		}
		if err := ci.put(path, modTime, rec); err != nil {
			return stats, err
		}
		stats.Parsed++
	}

	for path := range cached {
		if seen[path] || fileExists(path) {
			continue
		}
		if _, err := ci.db.Exec("DELETE FROM chat_index WHERE path = ?", path); err != nil {
			return stats, fmt.Errorf("delete index row failed: %w", err)
		}
		stats.Removed++
	}

	LogDebug("Chat index refreshed: %d parsed, %d reused, %d removed, %d skipped",
		stats.Parsed, stats.Reused, stats.Removed, stats.Skipped)
	return stats, nil
}

// List refreshes the index and returns its entries for opts, most recently
// modified first.
func (ci *ChatIndex) List(opts ListOptions) ([]IndexEntry, error) {
	if _, err := ci.Refresh(opts); err != nil {
		return nil, err
	}
	paths, err := ci.store.ChatFiles(opts)
	if err != nil {
		return nil, err
	}

	entries := make([]IndexEntry, 0, len(paths))
	for _, path := range paths {
		var e IndexEntry
		err := ci.db.QueryRow(
			"SELECT chat_id, title, created, modified, model, folder, message_count FROM chat_index WHERE path = ?", path,
		).Scan(&e.Metadata.ChatID, &e.Metadata.Title, &e.Metadata.Created, &e.Metadata.Modified,
			&e.Metadata.Model, &e.Metadata.Folder, &e.MessageCount)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("query index failed: %w", err)
		}
		e.Path = path
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].Metadata.ModifiedAt(), entries[j].Metadata.ModifiedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].Metadata.Modified > entries[j].Metadata.Modified
	})
	return entries, nil
}

// Clear drops every cached row
func (ci *ChatIndex) Clear() error {
	if _, err := ci.db.Exec("DELETE FROM chat_index"); err != nil {
		return fmt.Errorf("clear index failed: %w", err)
	}
	return nil
}

// Len returns the number of cached rows
func (ci *ChatIndex) Len() (int, error) {
	var n int
	if err := ci.db.QueryRow("SELECT COUNT(*) FROM chat_index").Scan(&n); err != nil {
		return 0, fmt.Errorf("count index failed: %w", err)
	}
	return n, nil
}

func (ci *ChatIndex) put(path string, modTime int64, rec *ChatRecord) error {
	m := rec.Metadata
	_, err := ci.db.Exec(`INSERT OR REPLACE INTO chat_index
		(path, mod_time, chat_id, title, created, modified, model, folder, message_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		path, modTime, m.ChatID, m.Title, m.Created, m.Modified, m.Model, m.Folder, MessageCount(rec.FullHistory))
	if err != nil {
		return fmt.Errorf("insert index row failed: %w", err)
	}
	return nil
}

func (ci *ChatIndex) modTimes() (map[string]int64, error) {
	rows, err := ci.db.Query("SELECT path, mod_time FROM chat_index")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var path string
		var modTime int64
		if err := rows.Scan(&path, &modTime); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out[path] = modTime
	}
	return out, rows.Err()
}
