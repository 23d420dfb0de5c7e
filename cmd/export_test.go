package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/prattle/internal"
	"github.com/iksnae/prattle/testutil"
)

func TestExportCommand(t *testing.T) {
	home := newTestHome(t)
	chatID := newChat(t, home, "Exported")
	store := openTestStore(t, home)
	if err := store.AppendExchange(chatID, internal.Exchange{User: "Hello", Assistant: "Hi there"}); err != nil {
		t.Fatalf("AppendExchange() error = %v", err)
	}
	outDir := filepath.Join(home, "exports")

	tests := []struct {
		name     string
		format   string
		wantExt  string
		contains string
	}{
		{name: "markdown", format: "md", wantExt: "md", contains: "# Exported"},
		{name: "json", format: "json", wantExt: "json", contains: `"chat_id"`},
		{name: "jsonl", format: "jsonl", wantExt: "jsonl", contains: `"role":"assistant"`},
		{name: "yaml", format: "yaml", wantExt: "yaml", contains: "title: Exported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustRun(t, home, "export", chatID, "--format", tt.format, "--output", outDir)
			path := filepath.Join(outDir, chatID+"."+tt.wantExt)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("export did not write %s: %v", path, err)
			}
			if !strings.Contains(string(data), tt.contains) {
				t.Errorf("%s export missing %q:\n%s", tt.format, tt.contains, data)
			}
		})
	}
}

func TestExportCommand_Stdout(t *testing.T) {
	home := newTestHome(t)
	chatID := newChat(t, home, "Piped")

	out := mustRun(t, home, "export", chatID, "--format", "json", "--stdout")
	var doc map[string]interface{}
	testutil.JSONUnmarshal(t, []byte(out), &doc)
	if doc["title"] != "Piped" {
		t.Errorf("title = %v, want Piped", doc["title"])
	}
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	home := newTestHome(t)
	chatID := newChat(t, home)

	_, err := runCommand(t, home, "export", chatID, "--format", "pdf")
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("export error = %v, want unsupported format", err)
	}
}
