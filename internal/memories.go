package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxMemoryEntries is how many memory sections are injected into context
const DefaultMaxMemoryEntries = 10

const memorySectionSeparator = "\n---\n**Updated:"

// MemoryStore is the append-only memories file shared by every chat
type MemoryStore struct {
	path string
}

// NewMemoryStore returns a store for the file at path; the file is created on first append
func NewMemoryStore(path string) *MemoryStore {
	return &MemoryStore{path: path}
}

// Path returns the memories file path
func (m *MemoryStore) Path() string {
	return m.path
}

// Append adds a timestamped section. Existing content is never rewritten.
func (m *MemoryStore) Append(text string, at time.Time) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return &StorageError{Path: m.path, Op: "write", Err: err}
	}
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &StorageError{Path: m.path, Op: "write", Err: err}
	}
	section := fmt.Sprintf("\n\n---\n**Updated: %s**\n\n%s\n", at.Format("2006-01-02 15:04:05"), text)
	if _, err := f.WriteString(section); err != nil {
		_ = f.Close()
		return &StorageError{Path: m.path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &StorageError{Path: m.path, Op: "write", Err: err}
	}
	return nil
}

// ReadAll returns the whole memories file, or "" when it does not exist yet
func (m *MemoryStore) ReadAll() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", &StorageError{Path: m.path, Op: "read", Err: err}
	}
	return string(data), nil
}

// Load returns the most recent maxEntries sections. Text before the first
// section (a hand-written preamble) counts as a section.
func (m *MemoryStore) Load(maxEntries int) (string, error) {
	content, err := m.ReadAll()
	if err != nil || content == "" {
		return "", err
	}
	parts := strings.Split(content, memorySectionSeparator)
	sections := []string{parts[0]}
	for _, part := range parts[1:] {
		sections = append(sections, memorySectionSeparator+part)
	}
	if maxEntries > 0 && len(sections) > maxEntries {
		sections = sections[len(sections)-maxEntries:]
	}
	return strings.TrimSpace(strings.Join(sections, "")), nil
}
