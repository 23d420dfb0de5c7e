package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/prattle/internal"
	"gopkg.in/yaml.v3"
)

func testRecord() *internal.ChatRecord {
	rec := internal.CreateTestRecord("chat-1", "Deploying",
		internal.Turn{Role: internal.RoleUser, Content: "How do I **deploy**?", Timestamp: "2024-01-01 00:00:00 UTC"},
		internal.Turn{Role: internal.RoleAssistant, Content: "Use kubectl.", Timestamp: "2024-01-01 00:00:01 UTC",
			TokenInfo: "💬 10 tokens (6 prompt + 4 completion) • 💰 $0.0001"},
	)
	rec.Metadata.Folder = "work"
	rec.CompactContext = "Earlier we set up the cluster."
	return rec
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"jsonl", "jsonl", false},
		{"md", "md", false},
		{"markdown", "md", false},
		{"yaml", "yaml", false},
		{"json", "json", false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if !tt.wantErr && exp.Extension() != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", exp.Extension(), tt.wantExt)
			}
		})
	}
}

func TestJSONLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(testRecord(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var first, second map[string]string
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 1 is not JSON: %v", err)
	}
	if first["role"] != "user" || first["chat_id"] != "chat-1" || first["content"] != "How do I **deploy**?" {
		t.Errorf("line 0 = %v", first)
	}
	if _, ok := first["token_info"]; ok {
		t.Error("user line has token_info")
	}
	if second["token_info"] == "" {
		t.Error("assistant line missing token_info")
	}
}

func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(testRecord(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc struct {
		ChatID         string          `json:"chat_id"`
		Folder         string          `json:"folder"`
		CompactContext string          `json:"compact_context"`
		Turns          []internal.Turn `json:"turns"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.ChatID != "chat-1" || doc.Folder != "work" {
		t.Errorf("metadata = %+v", doc)
	}
	if doc.CompactContext != "Earlier we set up the cluster." {
		t.Errorf("compact_context = %q", doc.CompactContext)
	}
	if len(doc.Turns) != 2 || doc.Turns[1].Content != "Use kubectl." {
		t.Errorf("turns = %+v", doc.Turns)
	}
}

func TestJSONExporter_EmptyChat(t *testing.T) {
	var buf bytes.Buffer
	rec := internal.CreateTestRecord("empty", "Empty")
	if err := (&JSONExporter{}).Export(rec, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"turns": []`) {
		t.Errorf("output = %s, want empty turns array", buf.String())
	}
}

func TestYAMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(testRecord(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if doc["chat_id"] != "chat-1" || doc["title"] != "Deploying" {
		t.Errorf("metadata = %v", doc)
	}
	turns, ok := doc["turns"].([]interface{})
	if !ok || len(turns) != 2 {
		t.Errorf("turns = %v", doc["turns"])
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(testRecord(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	want := []string{
		"# Deploying",
		"**Chat:** chat-1",
		"**Folder:** work",
		"**Messages:** 2",
		"## Summary\n\nEarlier we set up the cluster.",
		"**user:** (2024-01-01 00:00:00 UTC)",
		"How do I \\*\\*deploy\\*\\*?",
		"**assistant:** (2024-01-01 00:00:01 UTC)",
		"*💬 10 tokens (6 prompt + 4 completion) • 💰 $0.0001*",
	}
	for _, s := range want {
		if !strings.Contains(out, s) {
			t.Errorf("Export() output missing %q\n%s", s, out)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bold", "**x**", "\\*\\*x\\*\\*"},
		{"underscore", "__x__", "\\_\\_x\\_\\_"},
		{"code block kept", "```\n**x**\n```", "```\n**x**\n```"},
		{"plain", "text", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeMarkdown(tt.input); got != tt.want {
				t.Errorf("escapeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
