package internal

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a chat cannot be located after scanning
// every folder under the chats directory.
var ErrNotFound = errors.New("chat not found")

// ErrInvalidFolder is returned for folder names that would escape the
// chats directory.
var ErrInvalidFolder = errors.New("invalid folder name")

// StorageError represents errors accessing chat files
type StorageError struct {
	Path string
	Op   string // "create", "read", "write", "move", "delete"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing a chat file or settings file
type ParseError struct {
	Source string // "frontmatter", "settings"
	Key    string // file path or chat id
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SummarizerError represents a failed call to the completion service.
type SummarizerError struct {
	Provider string
	Model    string
	Err      error
}

func (e *SummarizerError) Error() string {
	return fmt.Sprintf("summarizer error [%s] %s: %v", e.Provider, e.Model, e.Err)
}

func (e *SummarizerError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
