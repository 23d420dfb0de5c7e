package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ChatFixture is the raw content of a chat file written by hand
type ChatFixture struct {
	ChatID   string
	Title    string
	Modified string
	Model    string
	Folder   string
	Compact  string
	History  string
}

// Render returns the file content in the on-disk chat layout
func (f ChatFixture) Render() string {
	modified := f.Modified
	if modified == "" {
		modified = "2024-01-01T00:00:00.000000Z"
	}
	model := f.Model
	if model == "" {
		model = "test/model"
	}
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "chat_id: %s\n", f.ChatID)
	fmt.Fprintf(&b, "title: %s\n", f.Title)
	fmt.Fprintf(&b, "created: %s\n", modified)
	fmt.Fprintf(&b, "modified: %s\n", modified)
	fmt.Fprintf(&b, "model: %s\n", model)
	fmt.Fprintf(&b, "folder: %q\n", f.Folder)
	b.WriteString("---\n\n")
	b.WriteString("# --- COMPACT CONTEXT ---\n")
	b.WriteString(f.Compact)
	b.WriteString("\n\n# --- FULL HISTORY ---\n")
	b.WriteString(f.History)
	b.WriteString("\n")
	return b.String()
}

// WriteChatFixture writes f under dir, inside its folder, and returns the path
func WriteChatFixture(t *testing.T, dir string, f ChatFixture) string {
	t.Helper()
	path := filepath.Join(dir, f.Folder, f.ChatID+".md")
	WriteRawFixture(t, path, f.Render())
	return path
}

// WriteRawFixture writes content to path, creating parent directories
func WriteRawFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", path, err)
	}
}

// UserTurn renders a user turn header and content as stored on disk
func UserTurn(ts, content string) string {
	return fmt.Sprintf("## User `[%s]`\n\n%s\n", ts, content)
}

// AssistantTurn renders an assistant turn header and content as stored on disk
func AssistantTurn(ts, content string) string {
	return fmt.Sprintf("## Assistant `[%s]`\n\n%s\n", ts, content)
}
